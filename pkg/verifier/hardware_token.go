// Copyright 2025 Certen Protocol
//
// Hardware-token verifier: delegates signing to an opaque token handle per
// spec §4.2. No concrete HSM backend is implemented (out of scope per §1);
// only the verifier contract is specified.

package verifier

import (
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/manifest-network/manifest-core/pkg/address"
)

// HardwareSigner is the sign-only contract a concrete HSM backend
// implements; this module never talks to real hardware.
type HardwareSigner interface {
	Sign(data []byte) (signature []byte, err error)
	PublicKeyCOSE() ([]byte, error)
}

// HardwareTokenVerifier verifies envelopes signed by a hardware token whose
// public key material was registered out of band and is resolved by key ID.
type HardwareTokenVerifier struct {
	Resolve func(keyID []byte) (cose.Verifier, []byte, error) // verifier, canonical COSE key bytes
}

func (HardwareTokenVerifier) Kind() Kind { return KindHardwareToken }

func (v HardwareTokenVerifier) Verify(msg *cose.Sign1Message, claimedFrom address.Address) (address.Address, error) {
	keyID, _ := msg.Headers.Unprotected[cose.HeaderLabelKeyID].([]byte)
	coseVerifier, cosePub, err := v.Resolve(keyID)
	if err != nil {
		return address.Address{}, fmt.Errorf("resolve hardware token key: %w", err)
	}

	if err := msg.Verify(nil, coseVerifier); err != nil {
		return address.Address{}, fmt.Errorf("hardware token signature check: %w", err)
	}

	derived := address.FromPublicKeyCOSE(cosePub)
	if derived != claimedFrom {
		return address.Address{}, fmt.Errorf("derived address does not match claimed from")
	}
	return derived, nil
}
