// Copyright 2025 Certen Protocol
//
// Minimal COSE_Key (RFC 8152 §13) encodings for the key types this module
// supports, canonical-CBOR encoded via pkg/wire so address derivation is
// deterministic across replicas.

package verifier

import "github.com/manifest-network/manifest-core/pkg/wire"

// coseKeyOKP is a COSE_Key for octet key pairs (Ed25519).
type coseKeyOKP struct {
	KeyType int    `cbor:"1,keyasint"`
	Curve   int    `cbor:"-1,keyasint"`
	X       []byte `cbor:"-2,keyasint"`
}

// coseKeyEC2 is a COSE_Key for elliptic curve keys (ECDSA P-256).
type coseKeyEC2 struct {
	KeyType int    `cbor:"1,keyasint"`
	Curve   int    `cbor:"-1,keyasint"`
	X       []byte `cbor:"-2,keyasint"`
	Y       []byte `cbor:"-3,keyasint"`
}

func marshalCOSEKey(key interface{}) ([]byte, error) {
	return wire.Marshal(key)
}
