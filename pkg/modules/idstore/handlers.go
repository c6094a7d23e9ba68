// Copyright 2025 Certen Protocol

package idstore

import (
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

type registerArgs struct {
	CredentialID []byte `cbor:"1,keyasint"`
	PublicKey    []byte `cbor:"2,keyasint"`
}

type lookupArgs struct {
	CredentialID []byte `cbor:"1,keyasint"`
}

// RegisterHandlers wires idstore.register/idstore.lookup into reg.
func RegisterHandlers(reg *dispatcher.Registry) {
	reg.Register("idstore.register", false, func(ctx *dispatcher.Context) ([]byte, error) {
		var args registerArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "credential_id")
		}
		Register(ctx.Batch, args.CredentialID, args.PublicKey)
		return nil, nil
	})

	reg.Register("idstore.lookup", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args lookupArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, apperr.ErrMalformedArgument.WithField("name", "credential_id")
		}
		return Require(ctx.Store, args.CredentialID)
	})
}
