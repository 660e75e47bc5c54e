package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/storage"
)

// DefaultRetention is how long `history prune` keeps images by default.
const DefaultRetention = 7 * 24 * time.Hour

// Pruner is the part of storage.FileStore that Prune needs.
type Pruner interface {
	Lister
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// PruneResult lists what Prune removed.
type PruneResult struct {
	// Removed are the deleted image files, sorted.
	Removed []string `json:"removed"`
	// Forgotten are the index records dropped: those of removed files and
	// those whose file no longer exists.
	Forgotten []string `json:"forgotten,omitempty"`
}

// Prune deletes image files created before cutoff. The creation time is the
// recorded one when idx has the file, else the filename stamp, else the
// store's modification time; files with none of these are kept. With
// dryRun nothing is deleted and the result reports what would be.
//
// A failed delete stops the prune; files removed before it are reported in
// the returned result.
func Prune(ctx context.Context, store Pruner, idx *Index, cutoff time.Time, dryRun bool) (*PruneResult, error) {
	objects, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var records map[string]Record
	if idx != nil {
		if records, err = idx.All(ctx); err != nil {
			return nil, err
		}
	}

	result := &PruneResult{Removed: []string{}}
	listed := make(map[string]bool, len(objects))
	for _, obj := range objects {
		listed[obj.Name] = true
		if !jimeng.IsImageName(obj.Name) {
			continue
		}
		created := createdAt(obj, records)
		if created.IsZero() || !created.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := store.Delete(ctx, obj.Name); err != nil {
				slices.Sort(result.Removed)
				return result, fmt.Errorf("history: prune %s: %w", obj.Name, err)
			}
		}
		result.Removed = append(result.Removed, obj.Name)
	}
	slices.Sort(result.Removed)

	if idx == nil {
		return result, nil
	}

	removed := make(map[string]bool, len(result.Removed))
	for _, name := range result.Removed {
		removed[name] = true
	}
	for name := range records {
		if removed[name] {
			result.Forgotten = append(result.Forgotten, name)
			continue
		}
		if listed[name] {
			continue
		}
		ok, err := store.Exists(ctx, name)
		if err != nil {
			return result, fmt.Errorf("history: check %s: %w", name, err)
		}
		if !ok {
			result.Forgotten = append(result.Forgotten, name)
		}
	}
	slices.Sort(result.Forgotten)

	if !dryRun {
		if err := idx.Forget(ctx, result.Forgotten); err != nil {
			return result, fmt.Errorf("history: forget records: %w", err)
		}
	}
	return result, nil
}

func createdAt(obj storage.Object, records map[string]Record) time.Time {
	if rec, ok := records[obj.Name]; ok && !rec.CreatedAt.IsZero() {
		return rec.CreatedAt.Time()
	}
	if info, ok := jimeng.ParseFilename(obj.Name); ok {
		return info.Time()
	}
	return obj.ModTime
}
