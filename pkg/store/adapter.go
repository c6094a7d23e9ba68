// Copyright 2025 Certen Protocol
//
// KV Adapter for CometBFT Database Integration (L6)
// Wraps CometBFT's dbm.DB interface to implement the store's KV contract.
// Adapted from the teacher's pkg/kvdb/adapter.go, which was already a
// generic Get/Set wrapper with no domain-specific content; Delete and
// Iterator are added here because the spec's scan operation needs them.

package store

import (
	dbm "github.com/cometbft/cometbft-db"
)

// KV is the ordered byte-map contract the core consumes from its
// persistent-store collaborator (spec §4.6): get, put, delete, and a
// prefix/range scan, nothing else.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Iterator(start, end []byte) (dbm.Iterator, error)
	ReverseIterator(start, end []byte) (dbm.Iterator, error)
}

// dbAdapter adapts a dbm.DB to the KV interface.
type dbAdapter struct {
	db dbm.DB
}

// NewKVAdapter creates a new KV view over the given underlying DB.
func NewKVAdapter(db dbm.DB) KV {
	return &dbAdapter{db: db}
}

func (a *dbAdapter) Get(key []byte) ([]byte, error) {
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	// v may be nil if the key is absent; callers treat that as "not present".
	return v, nil
}

func (a *dbAdapter) Set(key, value []byte) error {
	return a.db.SetSync(key, value)
}

func (a *dbAdapter) Delete(key []byte) error {
	return a.db.DeleteSync(key)
}

func (a *dbAdapter) Iterator(start, end []byte) (dbm.Iterator, error) {
	return a.db.Iterator(start, end)
}

func (a *dbAdapter) ReverseIterator(start, end []byte) (dbm.Iterator, error) {
	return a.db.ReverseIterator(start, end)
}
