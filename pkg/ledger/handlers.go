// Copyright 2025 Certen Protocol
//
// tokens.create / tokens.update / tokens.addExtendedInfo /
// tokens.removeExtendedInfo / tokens.mint / tokens.burn / tokens.info /
// ledger.send / ledger.balance dispatcher wiring (spec §4.10).

package ledger

import (
	"math/big"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/eventlog"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Config carries the chain-wide settings the ledger handlers need to
// resolve authorization and migration-gated behavior, resolved once at
// startup from the genesis document and the migration registry.
type Config struct {
	TokenAuthority address.Address
	Migrations     *migration.Registry
	// Events, when non-nil, receives a record of every successful mutation
	// (spec §4.8's send/mint/burn/token_create/token_update kinds).
	Events *eventlog.Log
}

// appendEvent records kind with payload marshaled from v, tagging addrs for
// the address index. A nil cfg.Events (e.g. check-tx, or a handler called
// before an entrypoint wires one up) makes this a no-op rather than a
// startup requirement.
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

type createArgs struct {
	Name                string                        `cbor:"1,keyasint"`
	Ticker              string                        `cbor:"2,keyasint"`
	Decimals            uint32                        `cbor:"3,keyasint"`
	InitialDistribution map[address.Address]*big.Int `cbor:"4,keyasint,omitempty"`
	MaximumSupply       *big.Int                      `cbor:"5,keyasint,omitempty"`
	Owner               *address.Address              `cbor:"6,keyasint,omitempty"`
	OwnerExplicitNull   bool                          `cbor:"7,keyasint"`
}

type updateArgs struct {
	Symbol            address.Address `cbor:"1,keyasint"`
	Name              *string         `cbor:"2,keyasint,omitempty"`
	Ticker            *string         `cbor:"3,keyasint,omitempty"`
	Decimals          *uint32         `cbor:"4,keyasint,omitempty"`
	NewOwner          *address.Address `cbor:"5,keyasint,omitempty"`
	OwnerExplicitNull bool            `cbor:"6,keyasint"`
}

type extInfoArgs struct {
	Symbol  address.Address         `cbor:"1,keyasint"`
	Entries map[uint32]ExtInfoEntry `cbor:"2,keyasint,omitempty"`
}

type removeExtInfoArgs struct {
	Symbol  address.Address `cbor:"1,keyasint"`
	Indices []uint32        `cbor:"2,keyasint,omitempty"`
}

type mintBurnArgs struct {
	Symbol           address.Address              `cbor:"1,keyasint"`
	Distribution     map[address.Address]*big.Int `cbor:"2,keyasint,omitempty"`
	ErrorOnUnderBurn bool                         `cbor:"3,keyasint"`
}

type symbolArgs struct {
	Symbol *address.Address `cbor:"1,keyasint,omitempty"`
	Ticker string           `cbor:"2,keyasint,omitempty"`
}

type sendArgs struct {
	Symbol address.Address `cbor:"1,keyasint"`
	From   *address.Address `cbor:"2,keyasint,omitempty"`
	To     address.Address `cbor:"3,keyasint"`
	Amount *big.Int        `cbor:"4,keyasint"`
}

type balanceArgs struct {
	Owner   address.Address   `cbor:"1,keyasint"`
	Symbols []address.Address `cbor:"2,keyasint,omitempty"`
}

// Register wires tokens.*/ledger.* into reg.
func Register(reg *dispatcher.Registry, cfg Config) {
	reg.Register("tokens.create", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args createArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "create_args")
		}

		auth := CreateAuth{
			TokenCreateForAllActive:  cfg.Migrations.IsActive("token-create-for-all", ctx.Height),
			DisableTokenCreateActive: cfg.Migrations.IsActive("disable-token-create", ctx.Height),
			TokenAuthority:           cfg.TokenAuthority,
		}
		if args.Owner != nil {
			proposed, err := account.Load(ctx.Batch, *args.Owner)
			if err != nil {
				return nil, err
			}
			auth.ProposedOwnerAccount = proposed
		}

		sym, err := Create(ctx.Batch, ctx.Sender, CreateParams{
			Name:                args.Name,
			Ticker:              args.Ticker,
			Decimals:            args.Decimals,
			InitialDistribution: args.InitialDistribution,
			MaximumSupply:       args.MaximumSupply,
			Owner:               args.Owner,
			OwnerExplicitNull:   args.OwnerExplicitNull,
		}, auth)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindTokenCreate, sym, sym.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.update", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args updateArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "update_args")
		}
		sym, err := RequireSymbol(ctx.Batch, args.Symbol)
		if err != nil {
			return nil, err
		}
		sym, err = Update(ctx.Batch, sym, ctx.Sender, UpdateParams{
			Name:              args.Name,
			Ticker:            args.Ticker,
			Decimals:          args.Decimals,
			NewOwner:          args.NewOwner,
			OwnerExplicitNull: args.OwnerExplicitNull,
		})
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindTokenUpdate, sym, sym.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.addExtendedInfo", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args extInfoArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "ext_info_args")
		}
		sym, err := RequireSymbol(ctx.Batch, args.Symbol)
		if err != nil {
			return nil, err
		}
		sym, err = AddExtendedInfo(ctx.Batch, sym, ctx.Sender, args.Entries)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.removeExtendedInfo", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args removeExtInfoArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "remove_ext_info_args")
		}
		sym, err := RequireSymbol(ctx.Batch, args.Symbol)
		if err != nil {
			return nil, err
		}
		sym, err = RemoveExtendedInfo(ctx.Batch, sym, ctx.Sender, args.Indices)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.mint", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args mintBurnArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "mint_args")
		}
		sym, err := RequireSymbol(ctx.Batch, args.Symbol)
		if err != nil {
			return nil, err
		}
		sym, err = Mint(ctx.Batch, sym, ctx.Sender, args.Distribution, MintAuth{
			TokenAuthority:         cfg.TokenAuthority,
			DisableTokenMintActive: cfg.Migrations.IsActive("disable-token-mint", ctx.Height),
		})
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindMint, sym, sym.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.burn", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args mintBurnArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "burn_args")
		}
		sym, err := RequireSymbol(ctx.Batch, args.Symbol)
		if err != nil {
			return nil, err
		}
		sym, err = Burn(ctx.Batch, sym, ctx.Sender, args.Distribution, args.ErrorOnUnderBurn, cfg.TokenAuthority)
		if err != nil {
			return nil, err
		}
		if err := cfg.appendEvent(ctx, eventlog.KindBurn, sym, sym.Address); err != nil {
			return nil, err
		}
		return wire.Marshal(sym)
	})

	reg.Register("tokens.info", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args symbolArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "symbol_args")
		}
		if args.Symbol != nil {
			sym, err := RequireSymbol(ctx.Store, *args.Symbol)
			if err != nil {
				return nil, err
			}
			return wire.Marshal(sym)
		}
		sym, err := LoadSymbolByTicker(ctx.Store, args.Ticker)
		if err != nil {
			return nil, err
		}
		if sym == nil {
			return nil, apperr.New(apperr.ErrGeneric.Code, "symbol not found: ticker %q", args.Ticker)
		}
		return wire.Marshal(sym)
	})

	reg.Register("ledger.send", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args sendArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "send_args")
		}
		from := ctx.Sender
		if args.From != nil {
			from = *args.From
		}

		auth := SendAuth{Sender: ctx.Sender}
		if from != ctx.Sender {
			fromAcct, err := account.Load(ctx.Batch, from)
			if err != nil {
				return nil, err
			}
			auth.FromAccount = fromAcct
		}

		if err := Send(ctx.Batch, args.Symbol, from, args.To, args.Amount, auth); err != nil {
			return nil, err
		}
		sendEvent := sendArgs{Symbol: args.Symbol, From: &from, To: args.To, Amount: args.Amount}
		if err := cfg.appendEvent(ctx, eventlog.KindSend, sendEvent, from, args.To); err != nil {
			return nil, err
		}
		return nil, nil
	})

	reg.Register("ledger.balance", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args balanceArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "balance_args")
		}
		sr, ok := ctx.Store.(ScanReader)
		if !ok {
			return nil, apperr.New(apperr.ErrGeneric.Code, "ledger.balance: store does not support scan")
		}
		balances, err := Balance(sr, args.Owner, args.Symbols)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(balances)
	})
}
