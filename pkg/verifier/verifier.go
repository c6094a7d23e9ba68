// Copyright 2025 Certen Protocol
//
// Signature & Verifier Set (L2)
// The spec calls for "a tagged enum variant for each kind plus a
// compile-time list of verifiers, iterated in order" (§9) rather than the
// dynamic-dispatch/duck-typing pattern it re-architects away from. Kind is
// the tag; Verifier is the common interface each concrete kind implements.

package verifier

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/envelope"
)

// Kind tags a verifier variant, matched against the envelope's
// HeaderLabelVerifierKind protected header.
type Kind int64

const (
	KindEd25519      Kind = 1
	KindECDSAP256    Kind = 2
	KindHardwareToken Kind = 3
	KindWebAuthn     Kind = 4
)

var ErrUnauthenticated = errors.New("verifier: unauthenticated")

// Verifier is the contract every verifier kind implements: verify a signed
// envelope and return the address it authenticates, or a reason it didn't.
type Verifier interface {
	Kind() Kind
	Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error)
}

// Signer is the dual of Verifier: produces a signed envelope for an
// address-holding identity.
type Signer interface {
	Kind() Kind
	COSESigner() cose.Signer
}

// Set is an ordered, composed list of verifiers. The first verifier whose
// Kind matches the envelope's declared verifier kind attempts verification;
// if none matches, or the match fails, verification is Unauthenticated.
type Set struct {
	verifiers []Verifier
}

// NewSet builds a verifier set from an ordered list of kinds.
func NewSet(verifiers ...Verifier) *Set {
	return &Set{verifiers: verifiers}
}

// Verify dispatches to the matching verifier kind and returns the
// authenticated address.
func (s *Set) Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error) {
	kind, ok := envelope.VerifierKind(msg)
	if !ok {
		return address.Address{}, ErrUnauthenticated
	}

	for _, v := range s.verifiers {
		if int64(v.Kind()) != kind {
			continue
		}
		addr, err := v.Verify(msg, claimedFrom)
		if err != nil {
			return address.Address{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return addr, nil
	}
	return address.Address{}, ErrUnauthenticated
}
