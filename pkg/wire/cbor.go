// Copyright 2025 Certen Protocol
//
// Canonical CBOR Encoding Mode
// Every wire structure in this module (envelopes, accounts, ledger records,
// events) is CBOR-encoded with the same deterministic mode so that two
// honest replicas produce bit-identical bytes for the same value.

package wire

import (
	"github.com/fxamacker/cbor/v2"
)

// EncMode is the shared canonical encoder: sorted map keys, definite-length
// arrays and maps, no floating point shortcuts. All packages that need to
// produce bytes that feed a signature or a Merkle leaf MUST use this mode
// instead of cbor.Marshal directly.
var EncMode = mustEncMode()

// DecMode rejects duplicate map keys and indefinite-length items on decode,
// the mirror image of EncMode's determinism guarantees.
var DecMode = mustDecMode()

func mustEncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeUnix
	mode, err := opts.EncMode()
	if err != nil {
		panic("wire: building canonical CBOR encode mode: " + err.Error())
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	opts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	mode, err := opts.DecMode()
	if err != nil {
		panic("wire: building canonical CBOR decode mode: " + err.Error())
	}
	return mode
}

// Marshal encodes v using the shared canonical mode.
func Marshal(v interface{}) ([]byte, error) {
	return EncMode.Marshal(v)
}

// Unmarshal decodes data into v using the shared canonical mode.
func Unmarshal(data []byte, v interface{}) error {
	return DecMode.Unmarshal(data, v)
}
