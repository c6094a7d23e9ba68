// Copyright 2025 Certen Protocol
//
// Event Log (L8)
// Append-only, monotonically numbered log with secondary indices on kind
// and on involved addresses. Grounded on the teacher's key-prefix indexing
// style in pkg/ledger/store.go (prefix + big-endian height, secondary
// lookup keys) applied here to event ids instead of block heights.

package eventlog

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Kind tags the structure of an Event's payload.
type Kind string

const (
	KindSend               Kind = "send"
	KindMint               Kind = "mint"
	KindBurn               Kind = "burn"
	KindTokenCreate        Kind = "token_create"
	KindTokenUpdate        Kind = "token_update"
	KindAccountCreate      Kind = "account_create"
	KindAccountAddRoles    Kind = "account_add_roles"
	KindAccountRemoveRoles Kind = "account_remove_roles"
	KindMultisigSubmit     Kind = "multisig_submit"
	KindMultisigApprove    Kind = "multisig_approve"
	KindMultisigRevoke     Kind = "multisig_revoke"
	KindMultisigExecute    Kind = "multisig_execute"
	KindMultisigWithdraw   Kind = "multisig_withdraw"
	KindMultisigExpired    Kind = "multisig_expired"
	KindMigrationActivated Kind = "migration_activated"
)

// Memo is a single uniform memo item: either a text or a binary blob.
// Early protocol versions stored memos as a single string in a memo_legacy
// field; post-migration, new events use this uniform list shape instead
// (spec §4.8). Readers tolerate both.
type Memo struct {
	Text  *string `cbor:"1,keyasint,omitempty"`
	Bytes []byte  `cbor:"2,keyasint,omitempty"`
}

// Event is an immutable, ordered record of a state-mutating operation.
type Event struct {
	ID        uint64            `cbor:"1,keyasint"`
	Time      int64             `cbor:"2,keyasint"`
	Kind      Kind              `cbor:"3,keyasint"`
	Payload   []byte            `cbor:"4,keyasint"`           // CBOR-encoded per-kind structure
	Addresses []address.Address `cbor:"5,keyasint,omitempty"` // involved addresses, for the address index

	// MemoLegacy is populated instead of Memo for events appended before
	// the memo-uniformity migration activates (height < activation).
	MemoLegacy *string `cbor:"6,keyasint,omitempty"`
	// Memo is populated for events appended at/after activation.
	Memo []Memo `cbor:"7,keyasint,omitempty"`
}

// Log is the append-only event log, backed by the persistent store.
type Log struct {
	nextID uint64
}

// NewLog constructs a Log, recovering nextID from the persisted counter.
func NewLog(s *store.Store) (*Log, error) {
	l := &Log{nextID: 1}
	counter, err := s.Get(counterKey())
	if err != nil {
		return nil, fmt.Errorf("eventlog: load counter: %w", err)
	}
	if counter != nil {
		l.nextID = decodeUint64(counter) + 1
	}
	return l, nil
}

func counterKey() []byte { return []byte("/events_meta/next_id") }

// Append writes a new event, its kind index, and the address indices for
// every involved address, returning the assigned event id. Height/within
// are the caller's ordering keys (spec's (height, within-block index) pair,
// §3.2 invariant 3).
func (l *Log) Append(batch *store.Batch, height uint64, within uint32, kind Kind, payload []byte, addrs []address.Address, eventTime int64, memoLegacyActive bool, memo string) (uint64, error) {
	id := l.nextID
	l.nextID++

	ev := Event{ID: id, Time: eventTime, Kind: kind, Payload: payload, Addresses: addrs}
	if memo != "" {
		if memoLegacyActive {
			ev.MemoLegacy = &memo
		} else {
			ev.Memo = []Memo{{Text: &memo}}
		}
	}

	encoded, err := wire.Marshal(&ev)
	if err != nil {
		return 0, fmt.Errorf("eventlog: encode event: %w", err)
	}

	batch.Put(store.EventKey(height, within), encoded)
	batch.Put(store.EventByIDKey(id), encoded)
	batch.Put(store.EventsByKindKey(string(kind), id), encodeUint64(id))
	batch.Put(counterKey(), encodeUint64(id))

	for _, a := range addrs {
		batch.Put(addressIndexKey(a, id), encodeUint64(id))
	}
	return id, nil
}

// addressIndexKey builds the secondary index entry linking an address to
// an event id, for list()'s address-intersection filter.
func addressIndexKey(addr address.Address, eventID uint64) []byte {
	return append(append([]byte("/events_by_addr/"), addr.Bytes()...), encodeUint64(eventID)...)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v
}
