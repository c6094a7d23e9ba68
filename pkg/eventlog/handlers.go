// Copyright 2025 Certen Protocol
//
// events.get / events.list dispatcher wiring (spec §4.8).

package eventlog

import (
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

type getArgs struct {
	ID uint64 `cbor:"1,keyasint"`
}

type listArgs struct {
	Kind        *Kind            `cbor:"1,keyasint,omitempty"`
	Address     *address.Address `cbor:"2,keyasint,omitempty"`
	Descending  bool             `cbor:"3,keyasint"`
	Cursor      uint64           `cbor:"4,keyasint"`
	Limit       int              `cbor:"5,keyasint"`
}

// Register wires events.get/events.list into reg.
func Register(reg *dispatcher.Registry) {
	reg.Register("events.get", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args getArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "id")
		}
		r, ok := ctx.Store.(Reader)
		if !ok {
			return nil, apperr.New(apperr.ErrGeneric.Code, "events.get: store does not support read")
		}
		ev, err := Get(r, args.ID)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, apperr.New(apperr.ErrGeneric.Code, "event not found: %d", args.ID)
		}
		return wire.Marshal(ev)
	})

	reg.Register("events.list", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args listArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "list_args")
		}
		sr, ok := ctx.Store.(ScanReader)
		if !ok {
			return nil, apperr.New(apperr.ErrGeneric.Code, "events.list: store does not support scan")
		}
		order := store.Ascending
		if args.Descending {
			order = store.Descending
		}
		page, err := List(sr, Filter{Kind: args.Kind, Address: args.Address}, order, args.Cursor, args.Limit)
		if err != nil {
			return nil, err
		}
		return wire.Marshal(page)
	})
}
