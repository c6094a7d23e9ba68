// Copyright 2025 Certen Protocol
//
// COSE-Sign1 envelope wrapper. Grounded on
// _examples/other_examples/0308fecb_forestrie-go-merklelog__massifs-rootsigner.go.go,
// the pack's only concrete example pairing fxamacker/cbor with
// veraison/go-cose: a cose.Sign1Message is built, signed with a cose.Signer,
// and the result is CBOR-marshaled. The "[protected_headers_bytes,
// unprotected_headers, payload, signature]" structure the spec describes is
// exactly go-cose's native Sign1 wire shape, so no custom framing is needed.

package envelope

import (
	"crypto/rand"
	"fmt"

	"github.com/veraison/go-cose"
)

// HeaderLabelVerifierKind is a private-use COSE protected-header label
// identifying which verifier.Set member handles a given signed envelope
// (digital-signature / hardware-token / web-auth), per spec §4.2's "first
// verifier whose protected header scheme matches" dispatch rule.
const HeaderLabelVerifierKind int64 = -65100

// Sign wraps payload (the canonical CBOR of a Request or Response) in a
// COSE-Sign1 structure, signing with signer under the given external AAD
// (the "context_string" the spec refers to). keyID, when non-nil, is
// carried in the unprotected header so a verifier.Verifier can resolve the
// signing key without a side registry — for the digital-signature kinds
// this is the canonical COSE public key itself (addresses are derived
// straight from it, so the envelope is self-certifying); credential-backed
// kinds (hardware token, WebAuthn) instead carry an opaque credential id
// their verifier looks up in pkg/modules/idstore.
func Sign(signer cose.Signer, verifierKind int64, payload, externalAAD, keyID []byte) ([]byte, error) {
	msg := cose.NewSign1Message()
	msg.Payload = payload
	msg.Headers.Protected.SetAlgorithm(signer.Algorithm())
	msg.Headers.Protected[cose.HeaderLabelAlgorithm] = signer.Algorithm()
	msg.Headers.Protected[HeaderLabelVerifierKind] = verifierKind
	if keyID != nil {
		msg.Headers.Unprotected[cose.HeaderLabelKeyID] = keyID
	}

	if err := msg.Sign(rand.Reader, externalAAD, signer); err != nil {
		return nil, fmt.Errorf("envelope: cose sign: %w", err)
	}
	return msg.MarshalCBOR()
}

// ParseSigned decodes the COSE-Sign1 wrapper without verifying the
// signature, returning the message so a verifier.Set can inspect the
// protected header and dispatch to the matching verifier kind.
func ParseSigned(data []byte) (*cose.Sign1Message, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("envelope: malformed cose sign1: %w", err)
	}
	return &msg, nil
}

// VerifierKind reads the HeaderLabelVerifierKind protected header.
func VerifierKind(msg *cose.Sign1Message) (int64, bool) {
	v, ok := msg.Headers.Protected[HeaderLabelVerifierKind]
	if !ok {
		return 0, false
	}
	kind, ok := v.(int64)
	return kind, ok
}
