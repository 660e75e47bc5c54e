package history

import (
	"context"
	"testing"
	"time"

	"github.com/haivivi/jimeng/pkg/jimeng"
)

func testRecords() []jimeng.Record {
	return []jimeng.Record{
		{
			Name:      "cat_1700000000000_0.png",
			Index:     0,
			Prompt:    "a cat",
			Width:     2048,
			Height:    2048,
			Seed:      42,
			Scale:     0.5,
			Watermark: true,
			Model:     jimeng.DefaultModel,
			RequestID: "req-1",
			CreatedAt: time.UnixMilli(1700000000000),
		},
		{
			Name:      "cat_1700000000000_1.png",
			Index:     1,
			Prompt:    "a cat",
			Seed:      42,
			RequestID: "req-1",
			CreatedAt: time.UnixMilli(1700000000000),
		},
	}
}

func testIndex(t *testing.T, idx *Index) {
	t.Helper()
	ctx := context.Background()

	if err := idx.Record(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := idx.lookup(ctx, "cat_1700000000000_0.png")
	if err != nil || !ok {
		t.Fatalf("lookup = %v, %v", ok, err)
	}
	if rec.Prompt != "a cat" || rec.Seed != 42 || rec.Width != 2048 || rec.RequestID != "req-1" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.CreatedAt.Millis() != 1700000000000 {
		t.Errorf("CreatedAt = %d", rec.CreatedAt.Millis())
	}

	if _, ok, err := idx.lookup(ctx, "missing.png"); ok || err != nil {
		t.Fatalf("lookup(missing) = %v, %v", ok, err)
	}

	all, err := idx.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("All returned %d records, want 2", len(all))
	}

	if err := idx.Forget(ctx, []string{"cat_1700000000000_0.png", "missing.png"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := idx.lookup(ctx, "cat_1700000000000_0.png"); ok || err != nil {
		t.Fatalf("lookup(forgotten) = %v, %v", ok, err)
	}
	if all, _ := idx.All(ctx); len(all) != 1 {
		t.Fatalf("All after Forget returned %d records, want 1", len(all))
	}
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	defer idx.Close()
	testIndex(t, idx)
}

func TestBadgerIndexInMemory(t *testing.T) {
	idx, err := OpenIndex(IndexOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	testIndex(t, idx)
}

func TestBadgerIndexPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := OpenIndex(IndexOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Record(ctx, testRecords()[:1]); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = OpenIndex(IndexOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if _, ok, err := idx.lookup(ctx, "cat_1700000000000_0.png"); !ok || err != nil {
		t.Fatalf("record lost after reopen: %v, %v", ok, err)
	}
}

func TestOpenIndexRequiresDir(t *testing.T) {
	if _, err := OpenIndex(IndexOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestListWithIndex(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	// The recorded time wins over the filename for prefixes that do not
	// follow the layout.
	err := idx.Record(ctx, []jimeng.Record{{
		Name:      "renamed.png",
		Prompt:    "a dog",
		Width:     1024,
		Height:    1024,
		Seed:      -1,
		CreatedAt: time.UnixMilli(1700000005000),
	}})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := List(ctx, objects("img_1700000000000_0.png", "renamed.png"), idx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Name != "renamed.png" {
		t.Fatalf("order = %v", Names(entries))
	}
	e := entries[0]
	if e.Prompt != "a dog" || e.Dimension != "1024x1024" || e.Seed == nil || *e.Seed != -1 {
		t.Errorf("entry not enriched: %+v", e)
	}
	if e.Time == UnknownTime {
		t.Error("expected recorded time")
	}
}
