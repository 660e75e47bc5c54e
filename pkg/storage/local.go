package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores files in a directory on disk.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute directory of the store.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) resolve(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

// Read opens the named file for reading.
func (l *Local) Read(_ context.Context, name string) (io.ReadCloser, error) {
	full, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Write creates the named file with O_EXCL, so two writers racing for the
// same name cannot clobber each other.
func (l *Local) Write(_ context.Context, name string) (io.WriteCloser, error) {
	full, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the named file.
func (l *Local) Delete(_ context.Context, name string) error {
	full, err := l.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the named file exists.
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	full, err := l.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// List returns the regular files directly under the root.
func (l *Local) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}
	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		objects = append(objects, Object{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return objects, nil
}

var _ FileStore = (*Local)(nil)
