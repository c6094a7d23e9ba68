// Copyright 2025 Certen Protocol
//
// Signers for outgoing response envelopes. The core signs every response it
// produces with its own server identity key.

package verifier

import (
	"crypto/ecdsa"
	"crypto/ed25519"

	"github.com/veraison/go-cose"
)

// Ed25519Signer wraps a private key as the verifier.Signer contract.
type Ed25519Signer struct {
	Key ed25519.PrivateKey
}

func (Ed25519Signer) Kind() Kind { return KindEd25519 }

func (s Ed25519Signer) COSESigner() cose.Signer {
	signer, err := cose.NewSigner(cose.AlgorithmEd25519, s.Key)
	if err != nil {
		panic("verifier: building ed25519 cose signer: " + err.Error())
	}
	return signer
}

// Address returns the canonical COSE_Key encoding of this signer's public
// key; address.FromPublicKeyCOSE turns it into the signer's address.
func (s Ed25519Signer) Address() (COSEKey []byte, err error) {
	return canonicalCOSEKeyEd25519(s.Key.Public().(ed25519.PublicKey))
}

// ECDSAP256Signer wraps a P-256 private key as the verifier.Signer contract.
type ECDSAP256Signer struct {
	Key *ecdsa.PrivateKey
}

func (ECDSAP256Signer) Kind() Kind { return KindECDSAP256 }

func (s ECDSAP256Signer) COSESigner() cose.Signer {
	signer, err := cose.NewSigner(cose.AlgorithmES256, s.Key)
	if err != nil {
		panic("verifier: building ecdsa cose signer: " + err.Error())
	}
	return signer
}
