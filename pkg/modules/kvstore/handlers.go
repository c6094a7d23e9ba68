// Copyright 2025 Certen Protocol

package kvstore

import (
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

type putArgs struct {
	Key   []byte          `cbor:"1,keyasint"`
	Owner address.Address `cbor:"2,keyasint"`
	Value []byte          `cbor:"3,keyasint"`
}

type keyArgs struct {
	Key []byte `cbor:"1,keyasint"`
}

// Register wires kvstore.put/kvstore.get/kvstore.disable into reg.
func Register(reg *dispatcher.Registry) {
	reg.Register("kvstore.put", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args putArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "key")
		}
		e, err := Put(ctx.Batch, args.Key, args.Owner, ctx.Sender, args.Value)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(e)
	})

	reg.Register("kvstore.get", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args keyArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "key")
		}
		e, err := Load(ctx.Store, args.Key)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, apperr.New(apperr.ErrGeneric.Code, "kvstore.get: key not found")
		}
		return wire.Marshal(e)
	})

	reg.Register("kvstore.disable", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args keyArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "key")
		}
		e, err := Disable(ctx.Batch, args.Key, ctx.Sender)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(e)
	})
}
