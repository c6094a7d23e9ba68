// Copyright 2025 Certen Protocol
//
// Account Module (L9)
// No direct teacher precedent (the teacher has no accounts/roles concept);
// grounded on the spec's §4.9 state diagram and persisted with the same
// typed load/save pair style pkg/ledger/store.go uses over the generic KV,
// here layered on pkg/store's batch/root-hashed KV instead of a bare
// interface.

package account

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Role gates a set of dispatcher methods against an Account's grant list,
// per the table in spec §4.9.
type Role string

const (
	RoleOwner                       Role = "owner"
	RoleCanLedgerTransact           Role = "canLedgerTransact"
	RoleCanMultisigSubmit           Role = "canMultisigSubmit"
	RoleCanMultisigApprove          Role = "canMultisigApprove"
	RoleCanKvStorePut               Role = "canKvStorePut"
	RoleCanKvStoreDisable           Role = "canKvStoreDisable"
	RoleCanTokensCreate             Role = "canTokensCreate"
	RoleCanTokensUpdate             Role = "canTokensUpdate"
	RoleCanTokensMint               Role = "canTokensMint"
	RoleCanTokensBurn               Role = "canTokensBurn"
	RoleCanTokensAddExtendedInfo    Role = "canTokensAddExtendedInfo"
	RoleCanTokensRemoveExtendedInfo Role = "canTokensRemoveExtendedInfo"
	RoleCanWebDeploy                Role = "canWebDeploy"
	RoleCanWebUpdate                Role = "canWebUpdate"
	RoleCanWebRemove                Role = "canWebRemove"
)

// RoleGrant binds a grantee address to the set of roles it holds on an
// Account. Stored as a sorted slice (rather than a map keyed by address)
// so the CBOR encoding stays deterministic without relying on a map-key
// type the canonical encoder would need to order itself.
type RoleGrant struct {
	Grantee address.Address `cbor:"1,keyasint"`
	Roles   []Role          `cbor:"2,keyasint"`
}

// MultisigFeature is the optional per-account configuration enabling the
// multisig submit/approve/execute flow (spec §4.9, feature tag MULTISIG).
type MultisigFeature struct {
	Threshold            uint32 `cbor:"1,keyasint"`
	ExpireAfterSeconds    uint32 `cbor:"2,keyasint"`
	ExecuteAutomatically bool   `cbor:"3,keyasint"`
}

// Account is a subresource identity carrying a role table, an optional
// multisig feature, and a disabled/description flag pair.
type Account struct {
	Address        address.Address  `cbor:"1,keyasint"`
	Grants         []RoleGrant      `cbor:"2,keyasint,omitempty"`
	Disabled       bool             `cbor:"3,keyasint"`
	Description    string           `cbor:"4,keyasint,omitempty"`
	Multisig       *MultisigFeature `cbor:"5,keyasint,omitempty"`
	NextMultisigIdx uint32          `cbor:"6,keyasint"`
	// SendACL is the optional LEDGER_SEND_ACL feature: when non-nil, it is
	// the exhaustive allow-list of symbols ledger.send may move out of
	// this account; absent means unrestricted.
	SendACL []address.Address `cbor:"7,keyasint,omitempty"`
}

// AllowsSend reports whether symbol may be sent from this account: true
// whenever SendACL is unset (unrestricted), or when symbol appears in it.
func (a *Account) AllowsSend(symbol address.Address) bool {
	if a.SendACL == nil {
		return true
	}
	for _, s := range a.SendACL {
		if s == symbol {
			return true
		}
	}
	return false
}

// HasRole reports whether grantee holds role on the account through a
// direct grant. Owner gates every account mutation, per the role table, but
// does not implicitly grant the narrower capability roles — callers that
// need "owner OR specific role" check both explicitly.
func (a *Account) HasRole(grantee address.Address, role Role) bool {
	for _, g := range a.Grants {
		if g.Grantee == grantee {
			for _, r := range g.Roles {
				if r == role {
					return true
				}
			}
			return false
		}
	}
	return false
}

// IsOwner reports whether grantee holds the owner role.
func (a *Account) IsOwner(grantee address.Address) bool {
	return a.HasRole(grantee, RoleOwner)
}

// Reader is the read side of the store this package needs: both
// *store.Store (committed reads) and *store.Batch (read-your-writes within
// a deliver-tx) satisfy it.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

// Load reads an Account by address. A nil, nil result means no such
// account exists.
func Load(r Reader, addr address.Address) (*Account, error) {
	raw, err := r.Get(store.AccountKey(addr))
	if err != nil {
		return nil, fmt.Errorf("account: load %x: %w", addr[:], err)
	}
	if raw == nil {
		return nil, nil
	}
	var a Account
	if err := wire.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("account: decode %x: %w", addr[:], err)
	}
	return &a, nil
}

// Save persists acct into batch.
func Save(batch *store.Batch, acct *Account) error {
	encoded, err := wire.Marshal(acct)
	if err != nil {
		return fmt.Errorf("account: encode %x: %w", acct.Address[:], err)
	}
	batch.Put(store.AccountKey(acct.Address), encoded)
	return nil
}

// nextIndex allocates and persists the next subresource index for
// moduleIdentity, the module-wide counter account.create draws from.
func nextIndex(batch *store.Batch, moduleIdentity address.Address) (uint32, error) {
	key := store.AccountNextIndexKey(moduleIdentity)
	raw, err := batch.Get(key)
	if err != nil {
		return 0, fmt.Errorf("account: load next index: %w", err)
	}
	var idx uint32
	if raw != nil {
		idx = store.DecodeUint32(raw)
	}
	if idx >= address.MaxSubresourceIndex {
		return 0, apperr.ErrSubresourcesExhausted
	}
	batch.Put(key, store.EncodeUint32(idx+1))
	return idx, nil
}

// unionRoles merges grants from additional into existing, returning a
// fresh sorted-by-grantee slice (account.addRoles semantics: union the
// grants).
func unionRoles(existing []RoleGrant, additional map[address.Address][]Role) []RoleGrant {
	byGrantee := make(map[address.Address]map[Role]bool, len(existing))
	for _, g := range existing {
		set := make(map[Role]bool, len(g.Roles))
		for _, r := range g.Roles {
			set[r] = true
		}
		byGrantee[g.Grantee] = set
	}
	for grantee, roles := range additional {
		set, ok := byGrantee[grantee]
		if !ok {
			set = make(map[Role]bool)
			byGrantee[grantee] = set
		}
		for _, r := range roles {
			set[r] = true
		}
	}
	return flattenGrants(byGrantee)
}

// subtractRoles removes the named roles from existing per grantee
// (account.removeRoles semantics). keepEmpty controls whether a grantee
// left with zero roles is retained as an empty entry (legacy-remove-roles
// migration active) or dropped entirely (post-migration default).
func subtractRoles(existing []RoleGrant, removals map[address.Address][]Role, keepEmpty bool) []RoleGrant {
	byGrantee := make(map[address.Address]map[Role]bool, len(existing))
	for _, g := range existing {
		set := make(map[Role]bool, len(g.Roles))
		for _, r := range g.Roles {
			set[r] = true
		}
		byGrantee[g.Grantee] = set
	}
	for grantee, roles := range removals {
		set, ok := byGrantee[grantee]
		if !ok {
			continue
		}
		for _, r := range roles {
			delete(set, r)
		}
		if len(set) == 0 && !keepEmpty {
			delete(byGrantee, grantee)
		}
	}
	return flattenGrants(byGrantee)
}

func flattenGrants(byGrantee map[address.Address]map[Role]bool) []RoleGrant {
	grants := make([]RoleGrant, 0, len(byGrantee))
	for grantee, set := range byGrantee {
		roles := make([]Role, 0, len(set))
		for r := range set {
			roles = append(roles, r)
		}
		grants = append(grants, RoleGrant{Grantee: grantee, Roles: sortRoles(roles)})
	}
	return sortGrants(grants)
}
