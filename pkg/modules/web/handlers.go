// Copyright 2025 Certen Protocol

package web

import (
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

type deployArgs struct {
	Owner address.Address `cbor:"1,keyasint"`
	Site  string          `cbor:"2,keyasint"`
	Pages map[string]Page `cbor:"3,keyasint"`
}

type removeArgs struct {
	Owner address.Address `cbor:"1,keyasint"`
	Site  string          `cbor:"2,keyasint"`
	Paths []string        `cbor:"3,keyasint"`
}

type requestArgs struct {
	Owner address.Address `cbor:"1,keyasint"`
	Site  string          `cbor:"2,keyasint"`
	Path  string          `cbor:"3,keyasint"`
}

// Register wires web.deploy/web.update/web.remove/web.request into reg.
func Register(reg *dispatcher.Registry) {
	reg.Register("web.deploy", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args deployArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "pages")
		}
		if err := Deploy(ctx.Batch, args.Owner, ctx.Sender, args.Site, args.Pages); err != nil {
			return nil, err
		}
		return nil, nil
	})

	reg.Register("web.update", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args deployArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "pages")
		}
		if err := Update(ctx.Batch, args.Owner, ctx.Sender, args.Site, args.Pages); err != nil {
			return nil, err
		}
		return nil, nil
	})

	reg.Register("web.remove", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args removeArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "paths")
		}
		if err := Remove(ctx.Batch, args.Owner, ctx.Sender, args.Site, args.Paths); err != nil {
			return nil, err
		}
		return nil, nil
	})

	reg.Register("web.request", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args requestArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "path")
		}
		page, err := Load(ctx.Store, args.Owner, args.Site, args.Path)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, apperr.New(apperr.ErrGeneric.Code, "web.request: page not found")
		}
		return wire.Marshal(page)
	})
}
