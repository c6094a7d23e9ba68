package store

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestCommitIsDeterministic(t *testing.T) {
	run := func() []byte {
		s := newTestStore(t)
		b := s.NewBatch()
		b.Put([]byte("/acct/a"), []byte("1"))
		b.Put([]byte("/acct/b"), []byte("2"))
		root, err := s.Commit(b, 1)
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return root
	}

	r1 := run()
	r2 := run()
	if string(r1) != string(r2) {
		t.Fatalf("commit roots differ across identical replicas: %x vs %x", r1, r2)
	}
}

func TestEmptyBatchLeavesRootUnchanged(t *testing.T) {
	s := newTestStore(t)
	b1 := s.NewBatch()
	b1.Put([]byte("/k"), []byte("v"))
	root1, err := s.Commit(b1, 1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b2 := s.NewBatch()
	root2, err := s.Commit(b2, 2)
	if err != nil {
		t.Fatalf("Commit empty batch: %v", err)
	}
	if string(root1) != string(root2) {
		t.Fatalf("empty batch changed the root: %x -> %x", root1, root2)
	}
	if s.Height() != 2 {
		t.Fatalf("height = %d, want 2", s.Height())
	}
}

func TestScanPrefix(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	b.Put([]byte("/balances/sym/a"), []byte("1"))
	b.Put([]byte("/balances/sym/b"), []byte("2"))
	b.Put([]byte("/acct/c"), []byte("3"))
	if _, err := s.Commit(b, 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	results, err := s.Scan([]byte("/balances/sym/"), Ascending, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Scan returned %d results, want 2", len(results))
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	b.Put([]byte("/k"), []byte("v"))
	if _, err := s.Commit(b, 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b2 := s.NewBatch()
	b2.Delete([]byte("/k"))
	if _, err := s.Commit(b2, 2); err != nil {
		t.Fatalf("Commit delete: %v", err)
	}

	v, err := s.Get([]byte("/k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("key still present after delete: %q", v)
	}
}
