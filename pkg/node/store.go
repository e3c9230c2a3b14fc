package node

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

var (
	blobPrefix = []byte("blob/")
	kvPrefix   = []byte("kv/")
)

// Store persists blobs and KV entries for a dev node.
type Store struct {
	db *badger.DB
}

// OpenStore opens a badger database in dir. An empty dir keeps everything
// in memory.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{zap.S().Named("badger")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func blobKey(root storage.Root) []byte {
	return append(append([]byte{}, blobPrefix...), root.String()...)
}

func kvKey(stream common.Hash, key []byte) []byte {
	k := make([]byte, 0, len(kvPrefix)+common.HashLength+len(key))
	k = append(k, kvPrefix...)
	k = append(k, stream.Bytes()...)
	return append(k, key...)
}

// PutBlob stores data under root. Blobs are immutable; storing the same root
// again is a no-op.
func (s *Store) PutBlob(root storage.Root, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(blobKey(root)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(blobKey(root), data)
	})
}

// Blob returns the bytes stored under root or storage.ErrNotFound.
func (s *Store) Blob(root storage.Root) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(root))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	return out, err
}

// HasBlob reports whether root is stored.
func (s *Store) HasBlob(root storage.Root) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobKey(root))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ApplyBatch writes every assignment of b in one transaction.
func (s *Store) ApplyBatch(b *kv.Batch) error {
	stream := b.Stream()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, w := range b.Writes {
			if len(w.Key) == 0 {
				return kv.ErrEmptyKey
			}
			if err := txn.Set(kvKey(stream, w.Key), w.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Value returns the value stored under key in stream. found is false when
// the key was never written.
func (s *Store) Value(stream common.Hash, key []byte) (value []byte, found bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kvKey(stream, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		if value == nil {
			value = []byte{}
		}
		return value, true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// badgerLogger routes badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Debugf(format, args...)
}
