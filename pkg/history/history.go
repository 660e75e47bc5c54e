// Package history lists the images already saved to an output store.
//
// Entries are ordered newest first by the millisecond stamp embedded in
// {prefix}_{ms}_{index}.{ext}. When an Index is supplied, its recorded
// metadata takes precedence over what the filename says.
package history

import (
	"cmp"
	"context"
	"slices"

	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/jsontime"
	"github.com/haivivi/jimeng/pkg/storage"
)

// UnknownTime is shown for files whose stamp cannot be recovered.
const UnknownTime = "unknown time"

// TimeLayout formats Entry.Time.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one listed image.
type Entry struct {
	Name      string          `json:"name"`
	Timestamp *jsontime.Milli `json:"timestamp"`
	Time      string          `json:"time"`
	Index     int             `json:"index"`
	Size      int64           `json:"size,omitempty"`

	// Set only when the image was recorded in an Index.
	Prompt    string `json:"prompt,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	Seed      *int64 `json:"seed,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Lister lists the files of an output store. storage.FileStore satisfies
// it.
type Lister interface {
	List(ctx context.Context) ([]storage.Object, error)
}

// List returns the image files in l newest first. Files are ordered by
// stamp descending, then by name; files without a stamp come last. idx
// may be nil. limit > 0 keeps only the first limit entries.
func List(ctx context.Context, l Lister, idx *Index, limit int) ([]Entry, error) {
	objects, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	var records map[string]Record
	if idx != nil {
		if records, err = idx.All(ctx); err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		if !jimeng.IsImageName(obj.Name) {
			continue
		}
		e := Entry{Name: obj.Name, Time: UnknownTime, Size: obj.Size}
		if info, ok := jimeng.ParseFilename(obj.Name); ok {
			ts := jsontime.UnixMilli(info.Millis)
			e.Timestamp = &ts
			e.Index = info.Index
		}
		if rec, ok := records[obj.Name]; ok {
			rec.apply(&e)
		}
		if e.Timestamp != nil {
			e.Time = e.Timestamp.Format(TimeLayout)
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, compareEntries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func compareEntries(a, b Entry) int {
	switch {
	case a.Timestamp == nil && b.Timestamp == nil:
		return cmp.Compare(a.Name, b.Name)
	case a.Timestamp == nil:
		return 1
	case b.Timestamp == nil:
		return -1
	}
	if c := cmp.Compare(b.Timestamp.Millis(), a.Timestamp.Millis()); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// Names returns the entry names in order.
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
