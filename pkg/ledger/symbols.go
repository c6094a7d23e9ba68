// Copyright 2025 Certen Protocol
//
// tokens.create / tokens.update / tokens.addExtendedInfo /
// tokens.removeExtendedInfo (spec §4.10.3, §4.10.5).

package ledger

import (
	"math/big"
	"sort"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// CreateAuth carries the sender-authorization context tokens.create needs,
// resolved by the caller (the dispatcher, consulting pkg/migration and
// genesis config) so this package stays independent of those layers.
type CreateAuth struct {
	// TokenCreateForAllActive mirrors the "token-create-for-all" migration
	// (rule 1): when true, any non-anonymous sender is accepted.
	TokenCreateForAllActive bool
	// TokenAuthority is the configured token authority identity (rule 2).
	TokenAuthority address.Address
	// ProposedOwnerAccount, when non-nil, is the Load'd Account the caller
	// proposed as owner, used for rule 3 (sender holds canTokensCreate on
	// it). Nil when the proposed owner isn't an Account (or none given).
	ProposedOwnerAccount *account.Account
	// DisableTokenCreateActive mirrors the "disable-token-create" migration:
	// once active, tokens.create is re-blocked regardless of rule 1-3.
	DisableTokenCreateActive bool
}

// CreateParams are tokens.create's arguments.
type CreateParams struct {
	Name                string
	Ticker              string
	Decimals            uint32
	InitialDistribution map[address.Address]*big.Int
	MaximumSupply       *big.Int
	// Owner is the caller's explicit owner argument; OwnerExplicitNull
	// distinguishes "not provided, default to sender" from "provided as
	// null, meaning immutable".
	Owner             *address.Address
	OwnerExplicitNull bool
}

// Create implements tokens.create.
func Create(batch *store.Batch, sender address.Address, params CreateParams, auth CreateAuth) (*Symbol, error) {
	if auth.DisableTokenCreateActive {
		return nil, apperr.ErrMethodNotFound.WithField("method", "tokens.create")
	}
	if err := authorizeCreate(sender, auth); err != nil {
		return nil, err
	}

	idx, err := nextSymbolIndex(batch, auth.TokenAuthority)
	if err != nil {
		return nil, err
	}
	symbolAddr, err := address.Subresource(auth.TokenAuthority, idx)
	if err != nil {
		return nil, err
	}

	owner := &sender
	if params.OwnerExplicitNull {
		owner = nil
	} else if params.Owner != nil {
		owner = params.Owner
	}

	sym := &Symbol{
		Address:           symbolAddr,
		Name:              params.Name,
		Ticker:            params.Ticker,
		Decimals:          params.Decimals,
		Owner:             owner,
		TotalSupply:       big.NewInt(0),
		CirculatingSupply: big.NewInt(0),
		MaximumSupply:     params.MaximumSupply,
	}

	if len(params.InitialDistribution) > 0 {
		total := big.NewInt(0)
		for _, recipient := range sortedAddresses(params.InitialDistribution) {
			amount := params.InitialDistribution[recipient]
			if amount.Sign() <= 0 {
				return nil, apperr.ErrOutOfRange.WithField("name", "amount")
			}
			bal, err := LoadBalance(batch, symbolAddr, recipient)
			if err != nil {
				return nil, err
			}
			bal = new(big.Int).Add(bal, amount)
			SaveBalance(batch, symbolAddr, recipient, bal)
			total.Add(total, amount)
		}
		sym.TotalSupply = total
		sym.CirculatingSupply = new(big.Int).Set(total)
	}

	if sym.MaximumSupply != nil && sym.TotalSupply.Cmp(sym.MaximumSupply) > 0 {
		return nil, apperr.ErrOverMaximumSupply
	}

	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

func authorizeCreate(sender address.Address, auth CreateAuth) error {
	if auth.TokenCreateForAllActive {
		if sender.IsAnonymous() {
			return apperr.ErrAnonymousNotAllowed.WithField("method", "tokens.create")
		}
		return nil
	}
	if sender == auth.TokenAuthority {
		return nil
	}
	if auth.ProposedOwnerAccount != nil && auth.ProposedOwnerAccount.HasRole(sender, account.RoleCanTokensCreate) {
		return nil
	}
	return apperr.ErrUnauthorizedSender
}

// UpdateParams are tokens.update's optional fields; nil means "leave
// unchanged" except NewOwner/OwnerExplicitNull which follow the same
// null-means-remove convention as CreateParams.
type UpdateParams struct {
	Name              *string
	Ticker            *string
	Decimals          *uint32
	NewOwner          *address.Address
	OwnerExplicitNull bool
}

// Update implements tokens.update: owner-only, rejects on an immutable
// token, and setting owner to null freezes it.
func Update(batch *store.Batch, sym *Symbol, sender address.Address, params UpdateParams) (*Symbol, error) {
	if sym.IsImmutable() {
		return nil, apperr.ErrImmutableToken
	}
	if *sym.Owner != sender {
		return nil, apperr.ErrMissingPermission.WithField("role", "token-owner")
	}

	if params.Name != nil {
		sym.Name = *params.Name
	}
	if params.Ticker != nil {
		sym.Ticker = *params.Ticker
	}
	if params.Decimals != nil {
		sym.Decimals = *params.Decimals
	}
	if params.OwnerExplicitNull {
		sym.Owner = nil
	} else if params.NewOwner != nil {
		sym.Owner = params.NewOwner
	}

	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// AddExtendedInfo implements tokens.addExtendedInfo: owner-only, sets
// entries at the given indices (non-commutative: a later add at the same
// index overwrites).
func AddExtendedInfo(batch *store.Batch, sym *Symbol, sender address.Address, entries map[uint32]ExtInfoEntry) (*Symbol, error) {
	if sym.IsImmutable() || *sym.Owner != sender {
		return nil, apperr.ErrMissingPermission.WithField("role", "token-owner")
	}
	if sym.ExtInfo == nil {
		sym.ExtInfo = make(map[uint32]ExtInfoEntry, len(entries))
	}
	for idx, entry := range entries {
		sym.ExtInfo[idx] = entry
	}
	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// RemoveExtendedInfo implements tokens.removeExtendedInfo: owner-only,
// clears the named indices.
func RemoveExtendedInfo(batch *store.Batch, sym *Symbol, sender address.Address, indices []uint32) (*Symbol, error) {
	if sym.IsImmutable() || *sym.Owner != sender {
		return nil, apperr.ErrMissingPermission.WithField("role", "token-owner")
	}
	for _, idx := range indices {
		delete(sym.ExtInfo, idx)
	}
	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

func sortedAddresses(m map[address.Address]*big.Int) []address.Address {
	out := make([]address.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		for k := 0; k < address.Size; k++ {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	return out
}
