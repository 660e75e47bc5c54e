package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/jsontime"
)

// Record is the metadata kept per saved image.
type Record struct {
	Name      string         `msgpack:"name"`
	Prompt    string         `msgpack:"prompt"`
	Width     int            `msgpack:"width"`
	Height    int            `msgpack:"height"`
	Seed      int64          `msgpack:"seed"`
	Scale     float64        `msgpack:"scale"`
	Watermark bool           `msgpack:"watermark"`
	Model     string         `msgpack:"model"`
	RequestID string         `msgpack:"request_id"`
	Index     int            `msgpack:"index"`
	CreatedAt jsontime.Milli `msgpack:"created_at"`
}

func (r Record) apply(e *Entry) {
	if !r.CreatedAt.IsZero() {
		ts := r.CreatedAt
		e.Timestamp = &ts
	}
	e.Index = r.Index
	e.Prompt = r.Prompt
	if r.Width > 0 && r.Height > 0 {
		e.Dimension = strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
	}
	seed := r.Seed
	e.Seed = &seed
	e.RequestID = r.RequestID
}

// keyPrefix namespaces image records inside the backend.
const keyPrefix = "image:"

// backend is the byte store behind an Index.
type backend interface {
	get(key string) ([]byte, error)
	putAll(kvs map[string][]byte) error
	deleteAll(keys []string) error
	scan(prefix string, fn func(key string, value []byte) error) error
	close() error
}

var errNotFound = errors.New("history: not found")

// Index stores a Record per saved image, keyed by filename.
// It implements jimeng.Recorder.
type Index struct {
	db     backend
	logger *slog.Logger
}

var _ jimeng.Recorder = (*Index)(nil)

// IndexOptions configures OpenIndex.
type IndexOptions struct {
	// Dir is the BadgerDB directory. Required unless InMemory is set.
	Dir string

	// InMemory runs badger without touching disk.
	InMemory bool

	// Logger receives badger warnings and errors. Nil discards them.
	Logger *slog.Logger
}

// OpenIndex opens a BadgerDB-backed index.
func OpenIndex(opts IndexOptions) (*Index, error) {
	db, err := openBadger(opts)
	if err != nil {
		return nil, fmt.Errorf("history: open index: %w", err)
	}
	return &Index{db: db, logger: opts.Logger}, nil
}

// NewMemoryIndex returns an index kept in a map, for tests.
func NewMemoryIndex() *Index {
	return &Index{db: newMemory()}
}

// Record implements jimeng.Recorder.
func (x *Index) Record(_ context.Context, records []jimeng.Record) error {
	kvs := make(map[string][]byte, len(records))
	for _, r := range records {
		data, err := msgpack.Marshal(fromPipeline(r))
		if err != nil {
			return fmt.Errorf("history: encode %s: %w", r.Name, err)
		}
		kvs[keyPrefix+r.Name] = data
	}
	return x.db.putAll(kvs)
}

// lookup returns the record for name.
func (x *Index) lookup(_ context.Context, name string) (Record, bool, error) {
	data, err := x.db.get(keyPrefix + name)
	if errors.Is(err, errNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Record{}, false, fmt.Errorf("history: decode %s: %w", name, err)
	}
	return r, true, nil
}

// All returns every record keyed by filename. Undecodable records are
// skipped.
func (x *Index) All(_ context.Context) (map[string]Record, error) {
	out := make(map[string]Record)
	err := x.db.scan(keyPrefix, func(key string, value []byte) error {
		var r Record
		if err := msgpack.Unmarshal(value, &r); err != nil {
			if x.logger != nil {
				x.logger.Warn("skip history record", "key", key, "error", err)
			}
			return nil
		}
		out[key[len(keyPrefix):]] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops the records of names. Unknown names are ignored.
func (x *Index) Forget(_ context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = keyPrefix + name
	}
	return x.db.deleteAll(keys)
}

// Close releases the backend.
func (x *Index) Close() error {
	return x.db.close()
}

func fromPipeline(r jimeng.Record) Record {
	return Record{
		Name:      r.Name,
		Prompt:    r.Prompt,
		Width:     r.Width,
		Height:    r.Height,
		Seed:      r.Seed,
		Scale:     r.Scale,
		Watermark: r.Watermark,
		Model:     r.Model,
		RequestID: r.RequestID,
		Index:     r.Index,
		CreatedAt: jsontime.Milli(r.CreatedAt),
	}
}
