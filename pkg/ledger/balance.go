// Copyright 2025 Certen Protocol
//
// ledger.balance / ledger.send (spec §4.10.2).

package ledger

import (
	"math/big"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// Balance implements ledger.balance: anonymous allowed, absent entries
// simply don't appear in the result.
func Balance(s ScanReader, addr address.Address, symbols []address.Address) (map[address.Address]*big.Int, error) {
	return ListBalances(s, addr, symbols)
}

// SendAuth carries the sender-authorization context ledger.send needs.
type SendAuth struct {
	// Sender is the envelope's authenticated sender.
	Sender address.Address
	// FromAccount is the Load'd Account for the `from` argument, when
	// `from` differs from Sender and is an Account; nil otherwise.
	FromAccount *account.Account
}

// Send implements ledger.send: moves amount of symbol from `from`
// (defaulting to the sender) to `to`.
func Send(batch *store.Batch, symbol, from, to address.Address, amount *big.Int, auth SendAuth) error {
	if from == to {
		return apperr.ErrInvalidOwner
	}
	if amount.Sign() <= 0 {
		return apperr.ErrOutOfRange.WithField("name", "amount")
	}

	if from != auth.Sender {
		if auth.FromAccount == nil {
			return apperr.ErrMissingPermission.WithField("role", string(account.RoleCanLedgerTransact))
		}
		if err := account.RequireEnabled(auth.FromAccount); err != nil {
			return err
		}
		if !auth.FromAccount.HasRole(auth.Sender, account.RoleCanLedgerTransact) {
			return apperr.ErrMissingPermission.WithField("role", string(account.RoleCanLedgerTransact))
		}
		if !auth.FromAccount.AllowsSend(symbol) {
			return apperr.ErrMissingPermission.WithField("role", "LEDGER_SEND_ACL")
		}
	}

	fromBalance, err := LoadBalance(batch, symbol, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return apperr.ErrInsufficientFunds
	}

	toBalance, err := LoadBalance(batch, symbol, to)
	if err != nil {
		return err
	}

	SaveBalance(batch, symbol, from, new(big.Int).Sub(fromBalance, amount))
	SaveBalance(batch, symbol, to, new(big.Int).Add(toBalance, amount))
	return nil
}
