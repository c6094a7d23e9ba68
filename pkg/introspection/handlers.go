// Copyright 2025 Certen Protocol
//
// data.info/data.getInfo/data.query and blockchain.info/blockchain.request/
// blockchain.response as dispatcher.HandlerFunc entries, per spec §4.11.
// All six are read-only (registered allow_anonymous, matching the
// teacher's ledger_handlers.go treating lookups as unauthenticated reads).

package introspection

import (
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

type getInfoArgs struct {
	Keys []uint64 `cbor:"1,keyasint,omitempty"`
}

type tokenArgs struct {
	Token []byte `cbor:"1,keyasint"`
}

// Register wires data.* and blockchain.* into reg.
func Register(reg *dispatcher.Registry, data *Data, chain *Blockchain) {
	reg.Register("data.info", true, func(ctx *dispatcher.Context) ([]byte, error) {
		attrs, err := data.Info(ctx.Store, ctx.Height)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(attrs)
	})

	reg.Register("data.getInfo", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args getInfoArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, malformed("keys")
		}
		attrs, err := data.GetInfo(ctx.Store, ctx.Height, args.Keys)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(attrs)
	})

	reg.Register("data.query", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args getInfoArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, malformed("keys")
		}
		attrs, err := data.Query(ctx.Store, ctx.Height, args.Keys)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(attrs)
	})

	reg.Register("blockchain.info", true, func(ctx *dispatcher.Context) ([]byte, error) {
		return wire.Marshal(chain.Info())
	})

	reg.Register("blockchain.request", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args tokenArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, malformed("token")
		}
		return chain.Request(ctx.Store, args.Token)
	})

	reg.Register("blockchain.response", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args tokenArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, malformed("token")
		}
		return chain.Response(ctx.Store, args.Token)
	})
}

func malformed(field string) error {
	return apperr.ErrMalformedArgument.WithField("name", field)
}
