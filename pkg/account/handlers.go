// Copyright 2025 Certen Protocol
//
// account.create / account.info / account.addRoles / account.removeRoles /
// account.disable / account.setDescription, per spec §4.9.

package account

import (
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// Create derives a fresh subresource of moduleIdentity, grants the sender
// the owner role, and persists the new Account.
func Create(batch *store.Batch, moduleIdentity, sender address.Address, features *MultisigFeature) (*Account, error) {
	idx, err := nextIndex(batch, moduleIdentity)
	if err != nil {
		return nil, err
	}
	addr, err := address.Subresource(moduleIdentity, idx)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Address:  addr,
		Grants:   []RoleGrant{{Grantee: sender, Roles: []Role{RoleOwner}}},
		Multisig: features,
	}
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Info fetches an Account by address, returning apperr.ErrGeneric-wrapped
// not-found for callers that want a dispatcher-friendly error rather than
// a nil result.
func Info(r Reader, addr address.Address) (*Account, error) {
	acct, err := Load(r, addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, apperr.New(-1, "account not found: %x", addr[:])
	}
	return acct, nil
}

// AddRoles requires owner on addr and unions grants into the account's
// existing role table.
func AddRoles(batch *store.Batch, addr, sender address.Address, grants map[address.Address][]Role) (*Account, error) {
	acct, err := Info(batch, addr)
	if err != nil {
		return nil, err
	}
	if !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleOwner))
	}
	acct.Grants = unionRoles(acct.Grants, grants)
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// RemoveRoles requires owner on addr and subtracts grants from the
// account's role table. keepEmptyEntries implements the
// legacy-remove-roles migration's "empty set stays present as []" behavior
// (spec §4.9); the dispatcher passes migration.IsActive("legacy-remove-roles", height).
func RemoveRoles(batch *store.Batch, addr, sender address.Address, grants map[address.Address][]Role, keepEmptyEntries bool) (*Account, error) {
	acct, err := Info(batch, addr)
	if err != nil {
		return nil, err
	}
	if !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleOwner))
	}
	acct.Grants = subtractRoles(acct.Grants, grants, keepEmptyEntries)
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Disable requires owner on addr and marks it disabled. The flag is checked
// by RequireEnabled, which ledger.send calls when sending from an account;
// the account, multisig, kvstore and web handlers do not check it, so a
// disabled account stays writable through them. Disabled accounts remain
// queryable.
func Disable(batch *store.Batch, addr, sender address.Address) (*Account, error) {
	acct, err := Info(batch, addr)
	if err != nil {
		return nil, err
	}
	if !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleOwner))
	}
	acct.Disabled = true
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// SetDescription requires owner on addr.
func SetDescription(batch *store.Batch, addr, sender address.Address, text string) (*Account, error) {
	acct, err := Info(batch, addr)
	if err != nil {
		return nil, err
	}
	if !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleOwner))
	}
	acct.Description = text
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// RequireEnabled rejects the operation if acct is disabled.
func RequireEnabled(acct *Account) error {
	if acct.Disabled {
		return apperr.New(-1, "account disabled: %x", acct.Address[:])
	}
	return nil
}
