package introspection

import (
	"crypto/ed25519"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/envelope"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/verifier"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

func newTestData(t *testing.T, registerTokens bool) (*Data, *store.Store, *migration.Registry) {
	t.Helper()
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	migrations := migration.NewRegistry(migration.NewRegular(accountCountMigration, 100, nil, nil, nil))
	reg := dispatcher.NewRegistry(nil, migrations)
	if registerTokens {
		reg.Register("tokens.create", false, func(ctx *dispatcher.Context) ([]byte, error) { return nil, nil })
	}
	reg.Register("multisig.submit", false, func(ctx *dispatcher.Context) ([]byte, error) { return nil, nil })
	return NewData(reg, migrations), s, migrations
}

func TestDataInfoEmptyBeforeActivation(t *testing.T) {
	d, s, _ := newTestData(t, true)
	attrs, err := d.Info(s, 50)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(attrs) != 0 {
		t.Fatalf("expected empty attribute set pre-activation, got %v", attrs)
	}
}

func TestDataInfoReportsRegisteredMethodGroups(t *testing.T) {
	d, s, _ := newTestData(t, true)
	attrs, err := d.Info(s, 100)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if _, ok := attrs[AttrTokensEnabled]; !ok {
		t.Fatalf("expected AttrTokensEnabled present, got %v", attrs)
	}
	if _, ok := attrs[AttrMultisigEnabled]; !ok {
		t.Fatalf("expected AttrMultisigEnabled present, got %v", attrs)
	}
	if _, ok := attrs[AttrKVStoreEnabled]; ok {
		t.Fatalf("did not expect AttrKVStoreEnabled, nothing registered it")
	}
}

func TestDataInfoOmitsUnregisteredGroups(t *testing.T) {
	d, s, _ := newTestData(t, false)
	attrs, err := d.Info(s, 100)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if _, ok := attrs[AttrTokensEnabled]; ok {
		t.Fatalf("did not expect AttrTokensEnabled, tokens.create not registered")
	}
}

func TestDataInfoAccountCountViaBatch(t *testing.T) {
	d, s, _ := newTestData(t, false)
	batch := s.NewBatch()

	acct1 := address.FromPublicKeyCOSE([]byte("account-one"))
	acct2 := address.FromPublicKeyCOSE([]byte("account-two"))
	if err := account.Save(batch, &account.Account{Address: acct1}); err != nil {
		t.Fatalf("Save acct1: %v", err)
	}
	if err := account.Save(batch, &account.Account{Address: acct2}); err != nil {
		t.Fatalf("Save acct2: %v", err)
	}
	if _, err := s.Commit(batch, 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	attrs, err := d.Info(batch, 100)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	count := store.DecodeUint64(attrs[AttrAccountCount])
	if count != 2 {
		t.Fatalf("account count = %d, want 2", count)
	}
}

func TestDataGetInfoFiltersKeys(t *testing.T) {
	d, s, _ := newTestData(t, true)
	attrs, err := d.GetInfo(s, 100, []uint64{uint64(AttrTokensEnabled), uint64(AttrWebEnabled)})
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if len(attrs) != 1 {
		t.Fatalf("expected exactly one requested attribute present, got %v", attrs)
	}
	if _, ok := attrs[AttrTokensEnabled]; !ok {
		t.Fatalf("expected AttrTokensEnabled, got %v", attrs)
	}
}

func TestDataQueryMatchesGetInfo(t *testing.T) {
	d, s, _ := newTestData(t, true)
	keys := []uint64{uint64(AttrTokensEnabled)}
	a, err := d.GetInfo(s, 100, keys)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	b, err := d.Query(s, 100, keys)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("Query and GetInfo disagree: %v vs %v", a, b)
	}
}

func TestBlockchainRequestResponseRoundTrip(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b := NewBlockchain("test-chain")
	if got := b.Info()["chain_id"]; got != "test-chain" {
		t.Fatalf("Info chain_id = %q, want test-chain", got)
	}

	token := []byte("envelope-hash")
	batch := s.NewBatch()
	batch.Put(store.TxRequestKey(token), []byte("raw-request"))
	batch.Put(store.TxResponseKey(token), []byte("raw-response"))
	if _, err := s.Commit(batch, 1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	req, err := b.Request(s, token)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(req) != "raw-request" {
		t.Fatalf("Request = %q, want raw-request", req)
	}

	resp, err := b.Response(s, token)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if string(resp) != "raw-response" {
		t.Fatalf("Response = %q, want raw-response", resp)
	}
}

func TestBlockchainRequestNotFound(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b := NewBlockchain("test-chain")

	_, err = b.Request(s, []byte("unknown-token"))
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.ErrGeneric.Code {
		t.Fatalf("expected ErrGeneric, got %v", err)
	}
}

func TestRegisterWiresDispatchableMethods(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	migrations := migration.NewRegistry(migration.NewRegular(accountCountMigration, 0, nil, nil, nil))
	reg := dispatcher.NewRegistry(verifier.NewSet(), migrations)
	data := NewData(reg, migrations)
	chain := NewBlockchain("test-chain")
	Register(reg, data, chain)

	for _, m := range []string{"data.info", "data.getInfo", "data.query", "blockchain.info", "blockchain.request", "blockchain.response"} {
		if !reg.Registered(m) {
			t.Fatalf("expected %s to be registered", m)
		}
	}

	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer := verifier.Ed25519Signer{Key: priv}

	now := time.Unix(1000, 0)
	req := &envelope.Request{From: address.Anonymous(), Method: "data.info", Timestamp: now.Unix()}
	payload, err := envelope.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	raw, err := envelope.Sign(signer.COSESigner(), int64(verifier.KindEd25519), payload, nil, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	respRaw, err := reg.Dispatch(raw, dispatcher.BlockContext{Height: 1, Time: now}, s, s.NewBatch(), signer, 5*time.Minute)
	if err != nil {
		t.Fatalf("Dispatch data.info: %v", err)
	}
	msg, err := envelope.ParseSigned(respRaw)
	if err != nil {
		t.Fatalf("ParseSigned: %v", err)
	}
	resp, err := envelope.DecodeResponse(msg.Payload)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	var attrs map[AttributeID][]byte
	if err := wire.Unmarshal(resp.Data, &attrs); err != nil {
		t.Fatalf("Unmarshal data.info result: %v", err)
	}
}
