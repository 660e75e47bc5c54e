package jimeng

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

// memStore is an in-memory Store. Writes fail once failAfter files are
// stored, when failAfter > 0.
type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	failAfter int
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Write(_ context.Context, name string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrExist)
	}
	if s.failAfter > 0 && len(s.files) >= s.failAfter {
		return nil, errors.New("disk full")
	}
	s.files[name] = nil
	return &memWriter{store: s, name: name}, nil
}

func (s *memStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *memStore) get(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[name]
}

type memWriter struct {
	store *memStore
	name  string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.files[w.name] = w.buf.Bytes()
	return nil
}
