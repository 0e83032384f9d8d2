package storage

import (
	"context"
	"slices"
	"sync/atomic"

	memdb "github.com/hashicorp/go-memdb"
)

const (
	recordTable = "record"
	recordIndex = "id"
)

type record struct {
	Key     string
	Payload []byte
}

func recordSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			recordTable: {
				Name: recordTable,
				Indexes: map[string]*memdb.IndexSchema{
					recordIndex: {
						Name:    recordIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// MemDBStore keeps records in a go-memdb table. Write transactions are
// serialized by memdb, which makes check-then-insert atomic.
type MemDBStore struct {
	db     *memdb.MemDB
	closed atomic.Bool
}

var _ AtomicStore = (*MemDBStore)(nil)

func NewMemDBStore() (*MemDBStore, error) {
	db, err := memdb.NewMemDB(recordSchema())
	if err != nil {
		return nil, err
	}
	return &MemDBStore{db: db}, nil
}

func (m *MemDBStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.check(ctx); err != nil {
		return nil, false, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(recordTable, recordIndex, key)
	if err != nil || raw == nil {
		return nil, false, err
	}
	return slices.Clone(raw.(*record).Payload), true, nil
}

func (m *MemDBStore) WriteIfAbsent(ctx context.Context, key string, payload []byte) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}
	txn := m.db.Txn(true)
	defer txn.Abort()

	old, err := txn.First(recordTable, recordIndex, key)
	if err != nil {
		return false, err
	} else if old != nil {
		return false, nil
	}

	if err := txn.Insert(recordTable, &record{Key: key, Payload: slices.Clone(payload)}); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}

// Len counts stored records.
func (m *MemDBStore) Len() (int, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(recordTable, recordIndex)
	if err != nil {
		return 0, err
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n, nil
}

func (m *MemDBStore) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *MemDBStore) check(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}
