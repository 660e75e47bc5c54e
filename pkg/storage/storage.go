// Package storage holds the output stores generated images are saved to.
//
// A FileStore is a flat namespace of image files keyed by name. The local
// backend is the output directory of the CLI and the web server; the S3
// backend targets any S3-compatible bucket (Volcengine TOS, AWS S3, MinIO).
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrInvalidName is returned for names that are empty, absolute or would
// escape the store root.
var ErrInvalidName = errors.New("storage: invalid name")

// Object describes one stored file.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileStore is the output store used by the generate pipeline and the
// history listing. Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file. A missing file yields an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, name string) (io.ReadCloser, error)

	// Write creates the named file. It never overwrites: if the file exists
	// the error wraps os.ErrExist. Data is committed on Close.
	Write(ctx context.Context, name string) (io.WriteCloser, error)

	// Delete removes the named file; a missing file is not an error.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the files at the store root in no particular order.
	List(ctx context.Context) ([]Object, error)
}

// CleanName validates a store name. Names use forward slashes and must
// stay inside the root.
func CleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidName
	}
	return clean, nil
}
