package envelope

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/verifier"
)

func TestRequestEncodeDecodeRoundTrip(t *testing.T) {
	from := address.FromPublicKeyCOSE([]byte("sender"))
	to := address.FromPublicKeyCOSE([]byte("recipient"))

	req := &Request{
		From:      from,
		To:        to,
		Method:    "ledger.send",
		Arguments: []byte{1, 2, 3},
		Timestamp: 1700000000,
		Nonce:     []byte("nonce"),
	}

	encoded, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	decoded, err := DecodeRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}

	if decoded.From != from || decoded.To != to || decoded.Method != req.Method {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, req)
	}
}

func TestResponseWithErrorRoundTrip(t *testing.T) {
	from := address.FromPublicKeyCOSE([]byte("server"))
	to := address.FromPublicKeyCOSE([]byte("client"))

	resp := &Response{
		From:      from,
		To:        to,
		Error:     &WireError{Code: -4, Message: "method not found: {method}", Fields: map[string]string{"method": "foo.bar"}},
		Timestamp: 1700000000,
	}

	encoded, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}

	decoded, err := DecodeResponse(encoded)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != -4 {
		t.Fatalf("decoded error mismatch: %+v", decoded.Error)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	req := &Request{
		From:      address.FromPublicKeyCOSE([]byte("a")),
		To:        address.FromPublicKeyCOSE([]byte("b")),
		Method:    "status",
		Timestamp: 42,
	}

	a, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	b, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("encoding is not deterministic across calls")
	}
}

func TestSignAndParseSelfCertifyingRoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer := verifier.Ed25519Signer{Key: priv}
	cosePub, err := signer.Address()
	if err != nil {
		t.Fatalf("signer.Address: %v", err)
	}
	from := address.FromPublicKeyCOSE(cosePub)

	req := &Request{From: from, Method: "status", Timestamp: 1700000000}
	payload, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	signed, err := Sign(signer.COSESigner(), int64(verifier.KindEd25519), payload, nil, cosePub)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	msg, err := ParseSigned(signed)
	if err != nil {
		t.Fatalf("ParseSigned: %v", err)
	}
	kind, ok := VerifierKind(msg)
	if !ok || kind != int64(verifier.KindEd25519) {
		t.Fatalf("VerifierKind: got (%v, %v), want (%v, true)", kind, ok, verifier.KindEd25519)
	}

	set := verifier.NewSet(verifier.Ed25519Verifier{Resolve: verifier.ResolveSelfCertifyingEd25519})
	verified, err := set.Verify(msg, from)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified != from {
		t.Fatalf("verified address mismatch: got %v, want %v", verified, from)
	}
}
