package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeString(t *testing.T, s FileStore, name, data string) {
	t.Helper()
	w, err := s.Write(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readString(t *testing.T, s FileStore, name string) string {
	t.Helper()
	r, err := s.Read(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(got)
}

func TestLocalWriteAndRead(t *testing.T) {
	s := newTestLocal(t)
	writeString(t, s, "img_1700000000000_0.png", "png data")
	if got := readString(t, s, "img_1700000000000_0.png"); got != "png data" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalReadNotExist(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Read(context.Background(), "no-such-file")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLocalWriteExclusive(t *testing.T) {
	s := newTestLocal(t)
	writeString(t, s, "f.png", "first")

	_, err := s.Write(context.Background(), "f.png")
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
	if got := readString(t, s, "f.png"); got != "first" {
		t.Fatalf("existing file was modified: %q", got)
	}
}

func TestLocalInvalidNames(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	for _, name := range []string{"", "../escape.png", "/etc/passwd", "a/../../b", `a\b`} {
		if _, err := s.Write(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Write(%q) err = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Read(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestLocalExistsAndDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "tmp")
	if err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}

	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Fatal(err)
	}

	writeString(t, s, "tmp", "x")
	if ok, _ := s.Exists(ctx, "tmp"); !ok {
		t.Fatal("expected file to exist")
	}
	if err := s.Delete(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "tmp"); ok {
		t.Fatal("file should be gone after delete")
	}
}

func TestLocalList(t *testing.T) {
	s := newTestLocal(t)
	writeString(t, s, "img_1700000000000_0.png", "a")
	writeString(t, s, "img_1700000001000_0.jpg", "bb")
	if err := os.Mkdir(filepath.Join(s.Root(), "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	objects, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, o := range objects {
		names = append(names, o.Name)
		if o.Name == "img_1700000001000_0.jpg" && o.Size != 2 {
			t.Errorf("Size = %d, want 2", o.Size)
		}
	}
	slices.Sort(names)
	want := []string{"img_1700000000000_0.png", "img_1700000001000_0.jpg"}
	if !slices.Equal(names, want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a.png", "a.png", true},
		{"./a.png", "a.png", true},
		{"x/../a.png", "a.png", true},
		{"..", "", false},
		{".", "", false},
		{"../a", "", false},
	}
	for _, tt := range tests {
		got, err := CleanName(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("CleanName(%q) = %q, %v", tt.in, got, err)
		}
	}
}
