// Copyright 2025 Certen Protocol
//
// Persistent Merkle Store (L6)
// Ordered KV with a cryptographic root hash and atomic batch commit; only
// the latest committed root and height are kept. store.Tree adapts the teacher's
// pkg/merkle.Tree (binary SHA-256 tree, odd-node duplication, inclusion
// proofs) from "batch of tx hashes" to "batch of committed key/value
// mutations".

package store

import (
	"crypto/sha256"
	"errors"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/manifest-network/manifest-core/pkg/merkle"
)

var rootKey = []byte("/__meta/root")
var heightKey = []byte("/__meta/height")

// ErrKeyNotFound is not returned by Store's own methods: Get returns
// (nil, nil) for absence and Scan returns an empty result for a prefix with
// no entries.
var ErrKeyNotFound = errors.New("store: key not found")

// Reader is the read side of the store every module package consumes;
// both *Store (committed reads) and *Batch (read-your-writes within a
// deliver-tx) satisfy it.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

// Direction controls Scan iteration order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Store is the core's view of the persistent Merkle-hashed key/value
// state. It owns the root-hash bookkeeping; the underlying KV is supplied
// by a collaborator (cometbft-db in this build).
type Store struct {
	kv     KV
	root   []byte
	height uint64
}

// Open constructs a Store over kv, restoring the last-committed root and
// height if present (empty store otherwise).
func Open(kv KV) (*Store, error) {
	s := &Store{kv: kv}

	root, err := kv.Get(rootKey)
	if err != nil {
		return nil, fmt.Errorf("store: load root: %w", err)
	}
	s.root = root

	if h, err := kv.Get(heightKey); err != nil {
		return nil, fmt.Errorf("store: load height: %w", err)
	} else if h != nil {
		s.height = decodeHeight(h)
	}
	return s, nil
}

// RootHash returns the current committed Merkle root, or nil before any
// commit has happened.
func (s *Store) RootHash() []byte {
	if s.root == nil {
		return nil
	}
	out := make([]byte, len(s.root))
	copy(out, s.root)
	return out
}

// Height returns the last committed height.
func (s *Store) Height() uint64 {
	return s.height
}

// Get reads a single key. A nil, nil result means the key is absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.kv.Get(key)
}

// ScanResult is one key/value pair returned by Scan.
type ScanResult struct {
	Key   []byte
	Value []byte
}

// Scan iterates keys sharing prefix, in the requested direction, up to
// limit results (0 means unlimited).
func (s *Store) Scan(prefix []byte, dir Direction, limit int) ([]ScanResult, error) {
	end := prefixUpperBound(prefix)

	var (
		it  dbm.Iterator
		err error
	)
	if dir == Ascending {
		it, err = s.kv.Iterator(prefix, end)
	} else {
		it, err = s.kv.ReverseIterator(prefix, end)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}
	defer it.Close()

	var results []ScanResult
	for ; it.Valid(); it.Next() {
		if limit > 0 && len(results) >= limit {
			break
		}
		k := append([]byte(nil), it.Key()...)
		v := append([]byte(nil), it.Value()...)
		results = append(results, ScanResult{Key: k, Value: v})
	}
	return results, it.Error()
}

// prefixUpperBound returns the smallest key that is strictly greater than
// every key sharing prefix, for use as an iterator's exclusive upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xFF bytes; no finite upper bound.
}

// NewBatch starts a fresh writable batch for the block currently being
// delivered. Only one writable batch may be outstanding at a time (the
// consensus bridge enforces the single-writer discipline).
func (s *Store) NewBatch() *Batch {
	return newBatch(s)
}

// PredictRoot computes the root batch would produce if committed on top
// of priorRoot, without mutating batch or any Store. Genesis seeding uses
// this to validate an optional expected-hash field (spec §6.4) before
// ever touching the underlying KV.
func PredictRoot(batch *Batch, priorRoot []byte) ([]byte, error) {
	ops := batch.sortedOps()
	if len(ops) == 0 {
		return priorRoot, nil
	}

	leaves := make([][]byte, len(ops))
	for i, op := range ops {
		leaf := sha256.Sum256(leafBytes(op))
		leaves[i] = leaf[:]
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("store: build commit tree: %w", err)
	}
	batchRoot := tree.Root()

	prior := priorRoot
	if prior == nil {
		prior = make([]byte, 32)
	}
	combined := sha256.Sum256(append(append([]byte(nil), prior...), batchRoot...))
	return combined[:], nil
}

// Commit atomically applies batch's staged mutations and recomputes the
// Merkle root as a deterministic function of the prior root and the
// committed batch (spec §3.2 invariant 4 and §4.6).
func (s *Store) Commit(batch *Batch, height uint64) ([]byte, error) {
	ops := batch.sortedOps()

	if len(ops) > 0 {
		root, err := PredictRoot(batch, s.root)
		if err != nil {
			return nil, err
		}
		s.root = root
	}

	for _, op := range ops {
		switch op.kind {
		case opPut:
			if err := s.kv.Set(op.key, op.value); err != nil {
				return nil, fmt.Errorf("store: commit put %x: %w", op.key, err)
			}
		case opDelete:
			if err := s.kv.Delete(op.key); err != nil {
				return nil, fmt.Errorf("store: commit delete %x: %w", op.key, err)
			}
		}
	}

	s.height = height
	if s.root != nil {
		if err := s.kv.Set(rootKey, s.root); err != nil {
			return nil, fmt.Errorf("store: persist root: %w", err)
		}
	}
	if err := s.kv.Set(heightKey, encodeHeight(height)); err != nil {
		return nil, fmt.Errorf("store: persist height: %w", err)
	}

	return s.RootHash(), nil
}

func encodeHeight(h uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(h >> (8 * i))
	}
	return b
}

func decodeHeight(b []byte) uint64 {
	var h uint64
	for _, by := range b {
		h = h<<8 | uint64(by)
	}
	return h
}
