// Copyright 2025 Certen Protocol
//
// Multisig transaction state machine (spec §4.9):
//
//   anonymous --submit--> Pending
//   Pending --approve(a)--> Pending   (approvers += a)
//   Pending --revoke(a)--> Pending    (approvers -= a; revoked += a)
//   Pending --execute--> Executed     (requires |approvers| >= threshold)
//   Pending --withdraw(s)--> Withdrawn
//   Pending --begin_block--> Expired  (if ctx.time >= expires_at)
//
// Executed is terminal even when the inner transaction fails (§9).

package account

import (
	"crypto/sha256"
	"time"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/eventlog"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Status is a MultisigTxn's current state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
)

// MultisigTxn is a pending or resolved multisig request against an
// account.
type MultisigTxn struct {
	ID             address.Address `cbor:"1,keyasint"`
	Account        address.Address `cbor:"2,keyasint"`
	Submitter      address.Address `cbor:"3,keyasint"`
	Status         Status          `cbor:"4,keyasint"`
	Approvers      []address.Address `cbor:"5,keyasint,omitempty"`
	Revoked        []address.Address `cbor:"6,keyasint,omitempty"`
	Threshold      uint32          `cbor:"7,keyasint"`
	ExpiresAt      int64           `cbor:"8,keyasint"`
	InnerMethod    string          `cbor:"9,keyasint"`
	InnerPayload   []byte          `cbor:"10,keyasint"`
	ExecutedCode   int32           `cbor:"11,keyasint,omitempty"`
	ExecutedResult []byte          `cbor:"12,keyasint,omitempty"`
}

// InnerDispatcher runs a multisig's approved inner transaction as if it
// originated from the account, returning the dispatcher's response code
// and raw result bytes. height/t are the enclosing block's, so the inner
// call's migration gates and emitted events see the real block context
// instead of a wall-clock read or a zero value. Implemented by
// pkg/dispatcher; declared here as an interface to avoid an import cycle
// (dispatcher depends on account, not the reverse).
type InnerDispatcher interface {
	DispatchAsAccount(batch *store.Batch, account address.Address, method string, payload []byte, height uint64, t time.Time) (code int32, result []byte, err error)
}

// LoadMultisig reads a MultisigTxn by id.
func LoadMultisig(r Reader, id address.Address) (*MultisigTxn, error) {
	raw, err := r.Get(store.MultisigKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var m MultisigTxn
	if err := wire.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func saveMultisig(batch *store.Batch, m *MultisigTxn) error {
	encoded, err := wire.Marshal(m)
	if err != nil {
		return err
	}
	batch.Put(store.MultisigKey(m.ID), encoded)
	return nil
}

// Submit requires canMultisigSubmit on acct and creates a Pending
// MultisigTxn whose id is sha256(acct's address || big-endian multisig
// index), carrying the inner method/payload to run if and when it executes.
// (The account address is itself a subresource, so it cannot parent one.)
func Submit(batch *store.Batch, acct *Account, sender address.Address, method string, payload []byte, nowUnix int64) (*MultisigTxn, error) {
	if acct.Multisig == nil {
		return nil, apperr.New(-1, "account has no multisig feature")
	}
	if !acct.HasRole(sender, RoleCanMultisigSubmit) && !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleCanMultisigSubmit))
	}

	idx := acct.NextMultisigIdx
	acct.NextMultisigIdx++
	if err := Save(batch, acct); err != nil {
		return nil, err
	}
	id := address.Address(sha256.Sum256(append(acct.Address.Bytes(), byte(idx>>24), byte(idx>>16), byte(idx>>8), byte(idx))))

	txn := &MultisigTxn{
		ID:           id,
		Account:      acct.Address,
		Submitter:    sender,
		Status:       StatusPending,
		Threshold:    acct.Multisig.Threshold,
		ExpiresAt:    nowUnix + int64(acct.Multisig.ExpireAfterSeconds),
		InnerMethod:  method,
		InnerPayload: payload,
	}
	if err := saveMultisig(batch, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Approve requires canMultisigApprove on the account and records approver
// unless already terminal or already approved. When the account's
// execute_automatically feature is set and the new approval count reaches
// threshold, Execute runs immediately within the same call. height/t are
// the enclosing block's, forwarded to Execute for the inner dispatch.
func Approve(batch *store.Batch, acct *Account, txn *MultisigTxn, approver address.Address, height uint64, t time.Time, dispatcher InnerDispatcher) (*MultisigTxn, error) {
	if err := expireIfDue(txn, t.Unix()); err != nil {
		return nil, err
	}
	if txn.Status != StatusPending {
		return nil, apperr.ErrMultisigTerminal
	}
	if !acct.HasRole(approver, RoleCanMultisigApprove) && !acct.IsOwner(approver) {
		return nil, apperr.ErrMissingPermission.WithField("role", string(RoleCanMultisigApprove))
	}
	if !containsAddr(txn.Approvers, approver) {
		txn.Approvers = append(txn.Approvers, approver)
	}

	if acct.Multisig.ExecuteAutomatically && uint32(len(txn.Approvers)) >= txn.Threshold {
		return Execute(batch, acct, txn, height, t, dispatcher)
	}
	if err := saveMultisig(batch, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Revoke removes approver's prior approval; revoking an approval never
// given is rejected generically.
func Revoke(batch *store.Batch, txn *MultisigTxn, approver address.Address, nowUnix int64) (*MultisigTxn, error) {
	if err := expireIfDue(txn, nowUnix); err != nil {
		return nil, err
	}
	if txn.Status != StatusPending {
		return nil, apperr.ErrMultisigTerminal
	}
	if !containsAddr(txn.Approvers, approver) {
		return nil, apperr.ErrGeneric
	}
	txn.Approvers = removeAddr(txn.Approvers, approver)
	if !containsAddr(txn.Revoked, approver) {
		txn.Revoked = append(txn.Revoked, approver)
	}
	if err := saveMultisig(batch, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Execute requires |approvers| >= threshold and dispatches the inner
// transaction as the account. The Executed transition is terminal and is
// recorded regardless of whether the inner dispatch succeeds (§9): a
// failing inner transaction is reported in ExecutedCode/ExecutedResult but
// does not roll back Status. height/t are the enclosing block's, passed
// straight through to DispatchAsAccount so the inner call's migration
// gates and emitted events see the real block context.
func Execute(batch *store.Batch, acct *Account, txn *MultisigTxn, height uint64, t time.Time, dispatcher InnerDispatcher) (*MultisigTxn, error) {
	if txn.Status != StatusPending {
		return nil, apperr.ErrMultisigTerminal
	}
	if uint32(len(txn.Approvers)) < txn.Threshold {
		return nil, apperr.ErrMultisigNotReady
	}

	code, result, dispatchErr := dispatcher.DispatchAsAccount(batch, acct.Address, txn.InnerMethod, txn.InnerPayload, height, t)
	txn.Status = StatusExecuted
	if dispatchErr != nil {
		if appErr, ok := dispatchErr.(*apperr.Error); ok {
			code = appErr.Code
		} else if code == 0 {
			code = apperr.ErrGeneric.Code
		}
	}
	txn.ExecutedCode = code
	txn.ExecutedResult = result

	if err := saveMultisig(batch, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Withdraw is callable only by the submitter or the account owner, while
// Pending.
func Withdraw(batch *store.Batch, acct *Account, txn *MultisigTxn, sender address.Address, nowUnix int64) (*MultisigTxn, error) {
	if err := expireIfDue(txn, nowUnix); err != nil {
		return nil, err
	}
	if txn.Status != StatusPending {
		return nil, apperr.ErrMultisigTerminal
	}
	if sender != txn.Submitter && !acct.IsOwner(sender) {
		return nil, apperr.ErrMissingPermission.WithField("role", "submitter-or-owner")
	}
	txn.Status = StatusWithdrawn
	if err := saveMultisig(batch, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// expireIfDue lazily transitions txn to Expired in memory if its deadline
// has passed, persisting nothing itself. Its callers return
// ErrMultisigTerminal without saving; the Expired status reaches the store
// only through SweepExpired or ExpireDue.
func expireIfDue(txn *MultisigTxn, nowUnix int64) error {
	if txn.Status == StatusPending && nowUnix >= txn.ExpiresAt {
		txn.Status = StatusExpired
	}
	return nil
}

// ExpireDue transitions the MultisigTxn at id to Expired and persists it,
// if it is Pending and past its deadline. Used where a single txn's id is
// already known (e.g. a caller reacting to one record); SweepExpired is
// the begin-block-wide equivalent.
func ExpireDue(batch *store.Batch, id address.Address, nowUnix int64) error {
	txn, err := LoadMultisig(batch, id)
	if err != nil || txn == nil {
		return err
	}
	if txn.Status == StatusPending && nowUnix >= txn.ExpiresAt {
		txn.Status = StatusExpired
		return saveMultisig(batch, txn)
	}
	return nil
}

// SweepExpired scans every MultisigTxn and expires those Pending past
// their deadline, emitting a multisig_expired event for each (spec §4.9:
// "Pending --begin_block--> Expired"). Returns the expired txns' ids.
func SweepExpired(batch *store.Batch, cfg Config, ctx dispatcher.BlockContext) ([]address.Address, error) {
	results, err := batch.Scan(store.MultisigsPrefix(), store.Ascending, 0)
	if err != nil {
		return nil, err
	}

	var expired []address.Address
	for _, r := range results {
		var txn MultisigTxn
		if err := wire.Unmarshal(r.Value, &txn); err != nil {
			return nil, err
		}
		if txn.Status != StatusPending || ctx.Time.Unix() < txn.ExpiresAt {
			continue
		}
		txn.Status = StatusExpired
		if err := saveMultisig(batch, &txn); err != nil {
			return nil, err
		}
		if err := cfg.appendBeginBlockEvent(batch, ctx, eventlog.KindMultisigExpired, txn, txn.ID, txn.Account); err != nil {
			return nil, err
		}
		expired = append(expired, txn.ID)
	}
	return expired, nil
}

func containsAddr(list []address.Address, a address.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func removeAddr(list []address.Address, a address.Address) []address.Address {
	out := make([]address.Address, 0, len(list))
	for _, x := range list {
		if x != a {
			out = append(out, x)
		}
	}
	return out
}
