package dispatcher

import (
	"crypto/ed25519"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/envelope"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/verifier"
)

func newTestRegistry(t *testing.T) (*Registry, ed25519.PrivateKey, address.Address, *store.Store) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer := verifier.Ed25519Signer{Key: priv}
	senderAddr, err := addressFromSigner(signer)
	if err != nil {
		t.Fatalf("addressFromSigner: %v", err)
	}

	vs := verifier.NewSet(verifier.Ed25519Verifier{
		Resolve: func(keyID []byte) (ed25519.PublicKey, error) { return pub, nil },
	})
	migrations := migration.NewRegistry(migration.NewRegular("gated-method", 100, []string{"gated.method"}, nil, nil))

	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	r := NewRegistry(vs, migrations)
	return r, priv, senderAddr, s
}

func addressFromSigner(s verifier.Ed25519Signer) (address.Address, error) {
	cosePub, err := s.Address()
	if err != nil {
		return address.Address{}, err
	}
	return address.FromPublicKeyCOSE(cosePub), nil
}

func signRequest(t *testing.T, priv ed25519.PrivateKey, from address.Address, method string, ts time.Time) []byte {
	t.Helper()
	req := &envelope.Request{From: from, Method: method, Timestamp: ts.Unix()}
	payload, err := envelope.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	signer := verifier.Ed25519Signer{Key: priv}
	raw, err := envelope.Sign(signer.COSESigner(), int64(verifier.KindEd25519), payload, nil, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return raw
}

func TestDispatchSuccess(t *testing.T) {
	r, priv, sender, s := newTestRegistry(t)
	r.Register("ping", false, func(ctx *Context) ([]byte, error) {
		return []byte("pong"), nil
	})

	now := time.Unix(1000, 0)
	raw := signRequest(t, priv, sender, "ping", now)

	signer := verifier.Ed25519Signer{Key: priv}
	respRaw, err := r.Dispatch(raw, BlockContext{Height: 1, Time: now}, s, s.NewBatch(), signer, 5*time.Minute)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	msg, err := envelope.ParseSigned(respRaw)
	if err != nil {
		t.Fatalf("ParseSigned response: %v", err)
	}
	resp, err := envelope.DecodeResponse(msg.Payload)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if string(resp.Data) != "pong" {
		t.Fatalf("response data = %q, want pong", resp.Data)
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	r, priv, sender, s := newTestRegistry(t)
	now := time.Unix(1000, 0)
	raw := signRequest(t, priv, sender, "nonexistent", now)

	signer := verifier.Ed25519Signer{Key: priv}
	_, err := r.Dispatch(raw, BlockContext{Height: 1, Time: now}, s, s.NewBatch(), signer, 5*time.Minute)
	if err == nil {
		t.Fatalf("expected method-not-found error")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.ErrMethodNotFound.Code {
		t.Fatalf("expected ErrMethodNotFound, got %v", err)
	}
}

func TestDispatchRejectsBeforeMigrationActivation(t *testing.T) {
	r, priv, sender, s := newTestRegistry(t)
	r.Register("gated.method", false, func(ctx *Context) ([]byte, error) { return nil, nil })

	now := time.Unix(1000, 0)
	raw := signRequest(t, priv, sender, "gated.method", now)
	signer := verifier.Ed25519Signer{Key: priv}

	_, err := r.Dispatch(raw, BlockContext{Height: 50, Time: now}, s, s.NewBatch(), signer, 5*time.Minute)
	if err == nil {
		t.Fatalf("expected gated method to be rejected before activation")
	}

	_, err = r.Dispatch(raw, BlockContext{Height: 100, Time: now}, s, s.NewBatch(), signer, 5*time.Minute)
	if err != nil {
		t.Fatalf("expected gated method to succeed at activation height: %v", err)
	}
}

func TestDispatchRejectsAnonymousForNonPublicMethod(t *testing.T) {
	r, _, _, s := newTestRegistry(t)
	r.Register("private.method", false, func(ctx *Context) ([]byte, error) { return nil, nil })

	now := time.Unix(1000, 0)
	req := &envelope.Request{From: address.Anonymous(), Method: "private.method", Timestamp: now.Unix()}
	payload, _ := envelope.EncodeRequest(req)

	pub, priv, _ := ed25519.GenerateKey(nil)
	anonSigner := verifier.Ed25519Signer{Key: priv}
	_ = pub
	raw, err := envelope.Sign(anonSigner.COSESigner(), int64(verifier.KindEd25519), payload, nil, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = r.Dispatch(raw, BlockContext{Height: 1, Time: now}, s, s.NewBatch(), anonSigner, 5*time.Minute)
	if err == nil {
		t.Fatalf("expected anonymous-not-allowed error")
	}
}

func TestDispatchRejectsDuplicateEnvelope(t *testing.T) {
	r, priv, sender, s := newTestRegistry(t)
	r.Register("ping", false, func(ctx *Context) ([]byte, error) { return []byte("pong"), nil })

	now := time.Unix(1000, 0)
	raw := signRequest(t, priv, sender, "ping", now)
	signer := verifier.Ed25519Signer{Key: priv}

	b := s.NewBatch()
	if _, err := r.Dispatch(raw, BlockContext{Height: 1, Time: now}, s, b, signer, 5*time.Minute); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if _, err := s.Commit(b, 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b2 := s.NewBatch()
	_, err := r.Dispatch(raw, BlockContext{Height: 2, Time: now}, s, b2, signer, 5*time.Minute)
	if err == nil {
		t.Fatalf("expected duplicate-envelope rejection")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.ErrDuplicateEnvelope.Code {
		t.Fatalf("expected ErrDuplicateEnvelope, got %v", err)
	}
}

func TestDispatchRejectsTimestampOutOfWindow(t *testing.T) {
	r, priv, sender, s := newTestRegistry(t)
	r.Register("ping", false, func(ctx *Context) ([]byte, error) { return []byte("pong"), nil })

	sendTime := time.Unix(1000, 0)
	raw := signRequest(t, priv, sender, "ping", sendTime)
	signer := verifier.Ed25519Signer{Key: priv}

	blockTime := sendTime.Add(time.Hour)
	_, err := r.Dispatch(raw, BlockContext{Height: 1, Time: blockTime}, s, s.NewBatch(), signer, 5*time.Minute)
	if err == nil {
		t.Fatalf("expected timestamp-out-of-window rejection")
	}
}

func TestDispatchAsAccountBypassesEnvelope(t *testing.T) {
	r, _, _, s := newTestRegistry(t)
	var seenSender address.Address
	var seenHeight uint64
	var seenTime time.Time
	r.Register("inner.method", true, func(ctx *Context) ([]byte, error) {
		seenSender = ctx.Sender
		seenHeight = ctx.Height
		seenTime = ctx.Time
		return []byte("done"), nil
	})

	acctAddr := address.FromPublicKeyCOSE([]byte("account"))
	wantHeight := uint64(42)
	wantTime := time.Unix(1700000000, 0)
	code, result, err := r.DispatchAsAccount(s.NewBatch(), acctAddr, "inner.method", nil, wantHeight, wantTime)
	if err != nil {
		t.Fatalf("DispatchAsAccount: %v", err)
	}
	if code != 0 || string(result) != "done" {
		t.Fatalf("code=%d result=%q", code, result)
	}
	if seenSender != acctAddr {
		t.Fatalf("handler saw sender %x, want %x", seenSender[:], acctAddr[:])
	}
	if seenHeight != wantHeight {
		t.Fatalf("handler saw height %d, want %d", seenHeight, wantHeight)
	}
	if !seenTime.Equal(wantTime) {
		t.Fatalf("handler saw time %v, want %v", seenTime, wantTime)
	}
}
