package verifier

import (
	"crypto/ed25519"
	"testing"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/envelope"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	signer := Ed25519Signer{Key: priv}
	cosePub, err := signer.Address()
	if err != nil {
		t.Fatalf("signer.Address: %v", err)
	}
	from := address.FromPublicKeyCOSE(cosePub)

	payload := []byte("hello world")
	signed, err := envelope.Sign(signer.COSESigner(), int64(KindEd25519), payload, nil, nil)
	if err != nil {
		t.Fatalf("envelope.Sign: %v", err)
	}

	msg, err := envelope.ParseSigned(signed)
	if err != nil {
		t.Fatalf("envelope.ParseSigned: %v", err)
	}

	set := NewSet(Ed25519Verifier{
		Resolve: func(keyID []byte) (ed25519.PublicKey, error) {
			return pub, nil
		},
	})

	got, err := set.Verify(msg, from)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got != from {
		t.Fatalf("verified address %x != expected %x", got, from)
	}
}

func TestVerifyRejectsWrongClaimedFrom(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	signer := Ed25519Signer{Key: priv}
	signed, err := envelope.Sign(signer.COSESigner(), int64(KindEd25519), []byte("payload"), nil, nil)
	if err != nil {
		t.Fatalf("envelope.Sign: %v", err)
	}
	msg, err := envelope.ParseSigned(signed)
	if err != nil {
		t.Fatalf("ParseSigned: %v", err)
	}

	set := NewSet(Ed25519Verifier{
		Resolve: func(keyID []byte) (ed25519.PublicKey, error) { return pub, nil },
	})

	wrongFrom := address.Anonymous()
	if _, err := set.Verify(msg, wrongFrom); err == nil {
		t.Fatalf("expected verification failure for mismatched from address")
	}
}

func TestSetReturnsUnauthenticatedForUnknownKind(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := Ed25519Signer{Key: priv}
	signed, err := envelope.Sign(signer.COSESigner(), 999, []byte("payload"), nil, nil)
	if err != nil {
		t.Fatalf("envelope.Sign: %v", err)
	}
	msg, err := envelope.ParseSigned(signed)
	if err != nil {
		t.Fatalf("ParseSigned: %v", err)
	}

	set := NewSet(Ed25519Verifier{
		Resolve: func(keyID []byte) (ed25519.PublicKey, error) { return pub, nil },
	})

	if _, err := set.Verify(msg, address.Anonymous()); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated for unmatched kind, got %v", err)
	}
}
