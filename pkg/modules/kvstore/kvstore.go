// Copyright 2025 Certen Protocol
//
// K/V Store module — sketched only as an example of how an application
// module composes on top of the core (spec §1), not specified in full.
// A blob, stored under a chain-wide key that records its owner, writable
// by its owner address or
// by an Account holding canKvStorePut on that owner, disable-able the
// same way, per the role table in spec §4.9.

package kvstore

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Entry is one stored key's value plus its disabled flag; disabled
// entries are retained (for lookup/audit) but reject further Put calls.
type Entry struct {
	Owner    address.Address `cbor:"1,keyasint"`
	Value    []byte          `cbor:"2,keyasint"`
	Disabled bool            `cbor:"3,keyasint"`
}

// Reader is the read side this package needs.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

// Load reads the Entry stored at key, or nil, nil if absent.
func Load(r Reader, key []byte) (*Entry, error) {
	raw, err := r.Get(store.KVKey(key))
	if err != nil {
		return nil, fmt.Errorf("kvstore: load %q: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	var e Entry
	if err := wire.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return &e, nil
}

func save(batch *store.Batch, key []byte, e *Entry) error {
	encoded, err := wire.Marshal(e)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	batch.Put(store.KVKey(key), encoded)
	return nil
}

// authorize requires sender == owner, or sender holding role on owner
// when owner resolves to an Account.
func authorize(batch *store.Batch, owner, sender address.Address, role account.Role) error {
	if sender == owner {
		return nil
	}
	acct, err := account.Load(batch, owner)
	if err != nil {
		return err
	}
	if acct != nil && acct.HasRole(sender, role) {
		return nil
	}
	return apperr.ErrMissingPermission.WithField("role", string(role))
}

// Put creates or overwrites key's entry, owned by owner. A disabled entry
// cannot be overwritten.
func Put(batch *store.Batch, key []byte, owner, sender address.Address, value []byte) (*Entry, error) {
	existing, err := Load(batch, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Disabled {
			return nil, apperr.New(-1, "kvstore: key %q is disabled", key)
		}
		if err := authorize(batch, existing.Owner, sender, account.RoleCanKvStorePut); err != nil {
			return nil, err
		}
	} else if err := authorize(batch, owner, sender, account.RoleCanKvStorePut); err != nil {
		return nil, err
	}

	e := &Entry{Owner: owner, Value: value}
	if err := save(batch, key, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Disable marks key's entry disabled, authorized the same way as Put but
// against the canKvStoreDisable role.
func Disable(batch *store.Batch, key []byte, sender address.Address) (*Entry, error) {
	e, err := Load(batch, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.New(-1, "kvstore: key %q not found", key)
	}
	if err := authorize(batch, e.Owner, sender, account.RoleCanKvStoreDisable); err != nil {
		return nil, err
	}
	e.Disabled = true
	if err := save(batch, key, e); err != nil {
		return nil, err
	}
	return e, nil
}
