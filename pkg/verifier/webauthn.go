// Copyright 2025 Certen Protocol
//
// Web-auth attestation verifier: the payload is embedded inside a
// client-data JSON structure (per spec §4.2); signature is checked against
// a stored credential tied to the claimed address via the idstore module.

package verifier

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/manifest-network/manifest-core/pkg/address"
)

// ClientData mirrors the subset of the WebAuthn clientDataJSON structure
// this module needs to cross-check: the payload hash it attests to.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
}

// CredentialStore resolves a registered credential's public key for a
// claimed address; the idstore.* module (sketched) backs this in practice.
type CredentialStore interface {
	ResolveCredential(addr address.Address) (cose.Verifier, error)
}

// WebAuthnVerifier checks a COSE-Sign1 envelope whose unprotected header
// carries the clientDataJSON bytes: the hex SHA-256 of the payload must
// equal clientData's challenge, and the signature is verified with the
// clientDataJSON bytes as external data, against the key registered for
// the claimed `from`.
type WebAuthnVerifier struct {
	Credentials CredentialStore
}

// HeaderLabelClientData is a private-use unprotected header label carrying
// the clientDataJSON bytes alongside the COSE-Sign1 signature.
const HeaderLabelClientData int64 = -65101

func (WebAuthnVerifier) Kind() Kind { return KindWebAuthn }

func (v WebAuthnVerifier) Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error) {
	clientDataBytes, ok := msg.Headers.Unprotected[HeaderLabelClientData].([]byte)
	if !ok {
		return address.Address{}, fmt.Errorf("missing client data header")
	}

	var clientData ClientData
	if err := json.Unmarshal(clientDataBytes, &clientData); err != nil {
		return address.Address{}, fmt.Errorf("malformed client data json: %w", err)
	}
	if clientData.Type != "webauthn.get" {
		return address.Address{}, fmt.Errorf("unexpected client data type %q", clientData.Type)
	}

	sum := sha256.Sum256(msg.Payload)
	if clientData.Challenge != fmt.Sprintf("%x", sum) {
		return address.Address{}, fmt.Errorf("client data challenge does not commit to payload")
	}

	coseVerifier, err := v.Credentials.ResolveCredential(claimedFrom)
	if err != nil {
		return address.Address{}, fmt.Errorf("resolve credential for %x: %w", claimedFrom, err)
	}
	if err := msg.Verify(clientDataBytes, coseVerifier); err != nil {
		return address.Address{}, fmt.Errorf("webauthn signature check: %w", err)
	}
	return claimedFrom, nil
}
