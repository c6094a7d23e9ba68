// Copyright 2025 Certen Protocol
//
// tokens.mint / tokens.burn (spec §4.10.3, §4.10.4).

package ledger

import (
	"math/big"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// MintAuth mirrors CreateAuth for tokens.mint/tokens.burn: authorized if
// the sender equals the symbol's token authority or the symbol's owner.
type MintAuth struct {
	TokenAuthority address.Address
	// DisableTokenMintActive mirrors the "disable token mint" migration.
	DisableTokenMintActive bool
}

func authorizeMintBurn(sym *Symbol, sender address.Address, tokenAuthority address.Address) error {
	if sender == tokenAuthority {
		return nil
	}
	if sym.Owner != nil && *sym.Owner == sender {
		return nil
	}
	return apperr.ErrUnauthorizedSender
}

// Mint implements tokens.mint.
func Mint(batch *store.Batch, sym *Symbol, sender address.Address, distribution map[address.Address]*big.Int, auth MintAuth) (*Symbol, error) {
	if auth.DisableTokenMintActive {
		return nil, apperr.ErrMethodNotFound.WithField("method", "tokens.mint")
	}
	if err := authorizeMintBurn(sym, sender, auth.TokenAuthority); err != nil {
		return nil, err
	}
	if len(distribution) == 0 {
		return nil, apperr.ErrEmptyDistribution
	}

	total := big.NewInt(0)
	for _, recipient := range sortedAddresses(distribution) {
		amount := distribution[recipient]
		if amount.Sign() <= 0 {
			return nil, apperr.ErrOutOfRange.WithField("name", "amount")
		}
		bal, err := LoadBalance(batch, sym.Address, recipient)
		if err != nil {
			return nil, err
		}
		SaveBalance(batch, sym.Address, recipient, new(big.Int).Add(bal, amount))
		total.Add(total, amount)
	}

	newTotal := new(big.Int).Add(sym.TotalSupply, total)
	if sym.MaximumSupply != nil && newTotal.Cmp(sym.MaximumSupply) > 0 {
		return nil, apperr.ErrOverMaximumSupply
	}
	sym.TotalSupply = newTotal
	sym.CirculatingSupply = new(big.Int).Add(sym.CirculatingSupply, total)

	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}

// Burn implements tokens.burn.
func Burn(batch *store.Batch, sym *Symbol, sender address.Address, distribution map[address.Address]*big.Int, errorOnUnderBurn bool, tokenAuthority address.Address) (*Symbol, error) {
	if err := authorizeMintBurn(sym, sender, tokenAuthority); err != nil {
		return nil, err
	}
	if len(distribution) == 0 {
		return nil, apperr.ErrEmptyDistribution
	}

	sortedTargets := sortedAddresses(distribution)
	for _, target := range sortedTargets {
		amount := distribution[target]
		if amount.Sign() <= 0 {
			return nil, apperr.ErrOutOfRange.WithField("name", "amount")
		}
		bal, err := LoadBalance(batch, sym.Address, target)
		if err != nil {
			return nil, err
		}
		if bal.Cmp(amount) < 0 {
			if errorOnUnderBurn {
				return nil, apperr.ErrInsufficientFunds
			}
			return nil, apperr.ErrPartialBurnDisabled
		}
	}

	total := big.NewInt(0)
	for _, target := range sortedTargets {
		amount := distribution[target]
		bal, err := LoadBalance(batch, sym.Address, target)
		if err != nil {
			return nil, err
		}
		SaveBalance(batch, sym.Address, target, new(big.Int).Sub(bal, amount))
		total.Add(total, amount)
	}

	sym.TotalSupply = new(big.Int).Sub(sym.TotalSupply, total)
	sym.CirculatingSupply = new(big.Int).Sub(sym.CirculatingSupply, total)

	if err := SaveSymbol(batch, sym); err != nil {
		return nil, err
	}
	return sym, nil
}
