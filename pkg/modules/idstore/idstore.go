// Copyright 2025 Certen Protocol
//
// Credential store module — sketched only as an example of how an
// application module composes on top of the core (spec §1). Backs the
// HSM/WebAuthn identity backends spec §1 treats as out of scope beyond
// the verifier contract (pkg/verifier): this module is the registry a
// WebAuthnVerifier's CredentialStore (ResolveCredential) would consult,
// mapping an opaque
// credential id to the public key bytes registered for it.

package idstore

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// Load looks up the public key registered for credentialID, or nil, nil
// if none is registered.
func Load(r store.Reader, credentialID []byte) ([]byte, error) {
	raw, err := r.Get(store.IDStoreKey(credentialID))
	if err != nil {
		return nil, fmt.Errorf("idstore: load %x: %w", credentialID, err)
	}
	return raw, nil
}

// Register binds credentialID to publicKey, overwriting any prior
// registration — credential rotation is the caller's responsibility, this
// module just stores the current mapping.
func Register(batch *store.Batch, credentialID, publicKey []byte) {
	batch.Put(store.IDStoreKey(credentialID), publicKey)
}

// Require is Load with a client-facing not-found error.
func Require(r store.Reader, credentialID []byte) ([]byte, error) {
	pub, err := Load(r, credentialID)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, apperr.New(apperr.ErrGeneric.Code, "idstore: credential %x not registered", credentialID)
	}
	return pub, nil
}
