// Package artifactstore keeps generated view artifacts in an embedded badger
// database so that repeated requests for the same view are answered without
// running the generator again.
package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
)

// ErrNotFound is returned by Get when no record has the requested key.
var ErrNotFound = errors.New("artifactstore: record not found")

const (
	recordPrefix = "artifact/"
	viewPrefix   = "view/"
)

// Record is one generated fragment.
type Record struct {
	Key        string    `msgpack:"key"`
	ViewName   string    `msgpack:"view"`
	OutputType string    `msgpack:"output"`
	Fragment   []byte    `msgpack:"fragment"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

// Store is a badger-backed record store. Records are stored under their key
// and indexed by view name.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens the store.
func New(opts StoreOptions) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint hashes parts into a stable record key. Parts are length
// prefixed so that ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...string) string {
	var b bytes.Buffer
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return strconv.FormatUint(xxh3.Hash(b.Bytes()), 16)
}

func recordKey(key string) []byte {
	return []byte(recordPrefix + key)
}

func viewKey(view, key string) []byte {
	return []byte(viewPrefix + view + "/" + key)
}

// Put stores rec, replacing any record with the same key. A zero CreatedAt is
// set to the current time.
func (s *Store) Put(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Key == "" {
		return fmt.Errorf("record key is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	val, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(rec.Key), val); err != nil {
			return err
		}
		if rec.ViewName == "" {
			return nil
		}
		return txn.Set(viewKey(rec.ViewName, rec.Key), nil)
	})
}

// Get returns the record stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the records of a view, newest first.
func (s *Store) List(ctx context.Context, view string) ([]*Record, error) {
	prefix := []byte(viewPrefix + view + "/")

	var records []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := strings.TrimPrefix(string(it.Item().Key()), string(prefix))

			item, err := txn.Get(recordKey(key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var rec Record
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode record %s: %w", key, err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b *Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// Delete removes the record stored under key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var rec Record
		if err := item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if rec.ViewName != "" {
			if err := txn.Delete(viewKey(rec.ViewName, key)); err != nil {
				return err
			}
		}
		return txn.Delete(recordKey(key))
	})
}
