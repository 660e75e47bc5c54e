package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

type badgerBackend struct {
	db *badger.DB
}

func openBadger(opts IndexOptions) (*badgerBackend, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("index dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{opts.Logger})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &badgerBackend{db: db}, nil
}

func (b *badgerBackend) get(key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errNotFound
	}
	return val, err
}

func (b *badgerBackend) putAll(kvs map[string][]byte) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range kvs {
		if err := wb.Set([]byte(k), v); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *badgerBackend) deleteAll(keys []string) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete([]byte(k)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *badgerBackend) scan(prefix string, fn func(key string, value []byte) error) error {
	p := []byte(prefix)
	return b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.KeyCopy(nil)), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *badgerBackend) close() error {
	return b.db.Close()
}

// badgerLogger forwards badger's warnings and errors to slog and drops the
// rest.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Error("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
	}
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
