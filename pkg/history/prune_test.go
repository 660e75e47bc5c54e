package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/storage"
)

func newPruneStore(t *testing.T, names ...string) *storage.Local {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		w, err := store.Write(context.Background(), name)
		if err != nil {
			t.Fatal(err)
		}
		w.Close()
	}
	return store
}

func storeNames(t *testing.T, store *storage.Local) []string {
	t.Helper()
	objs, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, o := range objs {
		names = append(names, o.Name)
	}
	slices.Sort(names)
	return names
}

// cutoff sits between the stamps 1700000000000 and 1700000002000.
var cutoff = time.UnixMilli(1700000001000)

func TestPruneByStamp(t *testing.T) {
	store := newPruneStore(t,
		"img_1700000000000_0.png",
		"img_1700000000000_1.png",
		"img_1700000002000_0.png",
		"notes.txt",
	)

	result, err := Prune(context.Background(), store, nil, cutoff, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"img_1700000000000_0.png", "img_1700000000000_1.png"}; !slices.Equal(result.Removed, want) {
		t.Errorf("Removed = %v, want %v", result.Removed, want)
	}
	if got, want := storeNames(t, store), []string{"img_1700000002000_0.png", "notes.txt"}; !slices.Equal(got, want) {
		t.Errorf("left = %v, want %v", got, want)
	}
}

func TestPruneDryRun(t *testing.T) {
	store := newPruneStore(t, "img_1700000000000_0.png", "img_1700000002000_0.png")

	result, err := Prune(context.Background(), store, nil, cutoff, true)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(result.Removed, []string{"img_1700000000000_0.png"}) {
		t.Errorf("Removed = %v", result.Removed)
	}
	if got := storeNames(t, store); len(got) != 2 {
		t.Errorf("dry run deleted files: %v", got)
	}
}

func TestPruneUnstampedUsesModTime(t *testing.T) {
	store := newPruneStore(t, "old.png", "new.png")
	old := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(filepath.Join(store.Root(), "old.png"), old, old); err != nil {
		t.Fatal(err)
	}

	result, err := Prune(context.Background(), store, nil, time.Now().Add(-DefaultRetention), false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(result.Removed, []string{"old.png"}) {
		t.Errorf("Removed = %v, want [old.png]", result.Removed)
	}
}

func TestPruneWithIndex(t *testing.T) {
	ctx := context.Background()
	store := newPruneStore(t, "img_1700000000000_0.png", "renamed.png")
	idx := NewMemoryIndex()
	err := idx.Record(ctx, []jimeng.Record{
		{Name: "img_1700000000000_0.png", CreatedAt: time.UnixMilli(1700000000000)},
		// The recorded time makes this file old although its name has no stamp.
		{Name: "renamed.png", CreatedAt: time.UnixMilli(1600000000000)},
		// Deleted by hand; only the record is left.
		{Name: "gone_1700000005000_0.png", CreatedAt: time.UnixMilli(1700000005000)},
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := Prune(ctx, store, idx, cutoff, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"img_1700000000000_0.png", "renamed.png"}; !slices.Equal(result.Removed, want) {
		t.Errorf("Removed = %v, want %v", result.Removed, want)
	}
	if want := []string{"gone_1700000005000_0.png", "img_1700000000000_0.png", "renamed.png"}; !slices.Equal(result.Forgotten, want) {
		t.Errorf("Forgotten = %v, want %v", result.Forgotten, want)
	}
	if all, _ := idx.All(ctx); len(all) != 0 {
		t.Errorf("index still holds %d records", len(all))
	}
}

type failingDelete struct {
	*storage.Local
	err error
}

func (f failingDelete) Delete(context.Context, string) error { return f.err }

func TestPruneDeleteError(t *testing.T) {
	store := newPruneStore(t, "img_1700000000000_0.png")
	boom := errors.New("permission denied")

	_, err := Prune(context.Background(), failingDelete{Local: store, err: boom}, nil, cutoff, false)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
