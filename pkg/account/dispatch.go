// Copyright 2025 Certen Protocol
//
// account.create / account.info / account.addRoles / account.removeRoles /
// account.disable / account.setDescription / multisig.submit /
// multisig.approve / multisig.revoke / multisig.execute /
// multisig.withdraw dispatcher wiring (spec §4.9).

package account

import (
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/eventlog"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Config carries the chain-wide settings account/multisig handlers need.
type Config struct {
	// ModuleIdentity is the configured identity account.create derives
	// fresh subresources of.
	ModuleIdentity address.Address
	Migrations     *migration.Registry
	// Events, when non-nil, receives a record of every successful account
	// and multisig state transition (spec §4.8).
	Events *eventlog.Log
}

func (cfg Config) appendEvent(ctx *dispatcher.Context, kind eventlog.Kind, v interface{}, addrs ...address.Address) error {
	if cfg.Events == nil || ctx.Batch == nil {
		return nil
	}
	payload, err := wire.Marshal(v)
	if err != nil {
		return err
	}
	memoLegacy := !cfg.Migrations.IsActive("memo-uniformity", ctx.Height)
	_, err = cfg.Events.Append(ctx.Batch, ctx.Height, 0, kind, payload, addrs, ctx.Time.Unix(), memoLegacy, "")
	return err
}

// appendBeginBlockEvent is appendEvent's begin-block counterpart, for
// events raised by a block-wide hook rather than a single handler's
// dispatcher.Context (SweepExpired's multisig_expired records).
func (cfg Config) appendBeginBlockEvent(batch *store.Batch, ctx dispatcher.BlockContext, kind eventlog.Kind, v interface{}, addrs ...address.Address) error {
	if cfg.Events == nil {
		return nil
	}
	payload, err := wire.Marshal(v)
	if err != nil {
		return err
	}
	memoLegacy := !cfg.Migrations.IsActive("memo-uniformity", ctx.Height)
	_, err = cfg.Events.Append(batch, ctx.Height, 0, kind, payload, addrs, ctx.Time.Unix(), memoLegacy, "")
	return err
}

type createArgs struct {
	Grants   map[address.Address][]Role `cbor:"1,keyasint,omitempty"`
	Features *MultisigFeature           `cbor:"2,keyasint,omitempty"`
}

type addrArgs struct {
	Address address.Address `cbor:"1,keyasint"`
}

type rolesArgs struct {
	Address address.Address            `cbor:"1,keyasint"`
	Grants  map[address.Address][]Role `cbor:"2,keyasint,omitempty"`
}

type descriptionArgs struct {
	Address address.Address `cbor:"1,keyasint"`
	Text    string          `cbor:"2,keyasint"`
}

type submitArgs struct {
	Account address.Address `cbor:"1,keyasint"`
	Method  string          `cbor:"2,keyasint"`
	Payload []byte          `cbor:"3,keyasint,omitempty"`
}

type multisigIDArgs struct {
	ID address.Address `cbor:"1,keyasint"`
}

// Register wires account.*/multisig.* into reg. innerDispatcher is the same
// *dispatcher.Registry, passed separately to satisfy multisig's
// InnerDispatcher interface without an import cycle.
func Register(reg *dispatcher.Registry, cfg Config, innerDispatcher InnerDispatcher) {
	reg.RegisterBeginBlock(func(batch *store.Batch, blockCtx dispatcher.BlockContext) error {
		_, err := SweepExpired(batch, cfg, blockCtx)
		return err
	})

	reg.Register("account.create", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args createArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "create_args")
		}
		acct, err := Create(ctx.Batch, cfg.ModuleIdentity, ctx.Sender, args.Features)
		if err != nil {
			return nil, err
		}
		if len(args.Grants) > 0 {
			acct.Grants = unionRoles(acct.Grants, args.Grants)
			if err := Save(ctx.Batch, acct); err != nil {
				return nil, err
			}
		}
		if err := cfg.appendEvent(ctx, eventlog.KindAccountCreate, acct, acct.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("account.info", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args addrArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "address")
		}
		acct, err := Info(ctx.Store, args.Address)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("account.addRoles", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args rolesArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "roles_args")
		}
		acct, err := AddRoles(ctx.Batch, args.Address, ctx.Sender, args.Grants)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindAccountAddRoles, acct, acct.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("account.removeRoles", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args rolesArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "roles_args")
		}
		keepEmpty := cfg.Migrations.IsActive("legacy-remove-roles", ctx.Height)
		acct, err := RemoveRoles(ctx.Batch, args.Address, ctx.Sender, args.Grants, keepEmpty)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindAccountRemoveRoles, acct, acct.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("account.disable", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args addrArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "address")
		}
		acct, err := Disable(ctx.Batch, args.Address, ctx.Sender)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("account.setDescription", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args descriptionArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "description_args")
		}
		acct, err := SetDescription(ctx.Batch, args.Address, ctx.Sender, args.Text)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(acct)
	})

	reg.Register("multisig.submit", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args submitArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "submit_args")
		}
		acct, err := Info(ctx.Batch, args.Account)
		if err != nil {
			return nil, err
		}
		txn, err := Submit(ctx.Batch, acct, ctx.Sender, args.Method, args.Payload, ctx.Time.Unix())
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMultisigSubmit, txn, txn.Account, txn.ID); err != nil {
			return nil, err
		}
		return wire.Marshal(txn)
	})

	reg.Register("multisig.approve", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args multisigIDArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "id")
		}
		txn, acct, err := loadMultisigAndAccount(ctx.Batch, args.ID)
		if err != nil {
			return nil, err
		}
		txn, err = Approve(ctx.Batch, acct, txn, ctx.Sender, ctx.Height, ctx.Time, innerDispatcher)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMultisigApprove, txn, txn.Account, txn.ID); err != nil {
			return nil, err
		}
		if txn.Status == StatusExecuted {
			if err := cfg.appendEvent(ctx, eventlog.KindMultisigExecute, txn, txn.Account, txn.ID); err != nil {
				return nil, err
			}
		}
		return wire.Marshal(txn)
	})

	reg.Register("multisig.revoke", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args multisigIDArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "id")
		}
		txn, err := LoadMultisig(ctx.Batch, args.ID)
		if err != nil {
			return nil, err
		}
		if txn == nil {
			return nil, apperr.New(apperr.ErrGeneric.Code, "multisig not found: %x", args.ID[:])
		}
		txn, err = Revoke(ctx.Batch, txn, ctx.Sender, ctx.Time.Unix())
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMultisigRevoke, txn, txn.Account, txn.ID); err != nil {
			return nil, err
		}
		return wire.Marshal(txn)
	})

	reg.Register("multisig.execute", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args multisigIDArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "id")
		}
		txn, acct, err := loadMultisigAndAccount(ctx.Batch, args.ID)
		if err != nil {
			return nil, err
		}
		txn, err = Execute(ctx.Batch, acct, txn, ctx.Height, ctx.Time, innerDispatcher)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMultisigExecute, txn, txn.Account, txn.ID); err != nil {
			return nil, err
		}
		return wire.Marshal(txn)
	})

	reg.Register("multisig.withdraw", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args multisigIDArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "id")
		}
		txn, acct, err := loadMultisigAndAccount(ctx.Batch, args.ID)
		if err != nil {
			return nil, err
		}
		txn, err = Withdraw(ctx.Batch, acct, txn, ctx.Sender, ctx.Time.Unix())
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMultisigWithdraw, txn, txn.Account, txn.ID); err != nil {
			return nil, err
		}
		return wire.Marshal(txn)
	})
}

func loadMultisigAndAccount(r Reader, id address.Address) (*MultisigTxn, *Account, error) {
	txn, err := LoadMultisig(r, id)
	if err != nil {
		return nil, nil, err
	}
	if txn == nil {
		return nil, nil, apperr.New(apperr.ErrGeneric.Code, "multisig not found: %x", id[:])
	}
	acct, err := Info(r, txn.Account)
	if err != nil {
		return nil, nil, err
	}
	return txn, acct, nil
}
