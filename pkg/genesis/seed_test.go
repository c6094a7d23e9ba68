package genesis

import (
	"encoding/json"
	"math/big"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/ledger"
	"github.com/manifest-network/manifest-core/pkg/store"
)

func testAddr(t *testing.T, seed string) address.Address {
	t.Helper()
	return address.FromPublicKeyCOSE([]byte(seed))
}

func TestSeedAppliesSymbolsAndBalances(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	identity := testAddr(t, "server-identity")
	tokenAuthority := testAddr(t, "token-authority")
	accountIdentity := testAddr(t, "account-identity")
	symbolAddr := testAddr(t, "usd-symbol")
	alice := testAddr(t, "alice")
	bob := testAddr(t, "bob")

	doc := Document{
		Identity: address.Textual(identity),
		Initial: map[string]map[string]string{
			address.Textual(alice): {"USD": "100"},
			address.Textual(bob):   {"USD": "50"},
		},
		Symbols: map[string]string{address.Textual(symbolAddr): "USD"},
		SymbolsMeta: map[string]SymbolMeta{
			address.Textual(symbolAddr): {Name: "US Dollar", Decimals: 2},
		},
		TokenIdentity:        address.Textual(tokenAuthority),
		TokenNextSubresource: 1,
		AccountIdentity:      address.Textual(accountIdentity),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	seeder := New(identity)
	batch := s.NewBatch()
	if err := seeder.Seed(batch, raw); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := s.Commit(batch, 0); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sym, err := ledger.LoadSymbol(s, symbolAddr)
	if err != nil {
		t.Fatalf("LoadSymbol: %v", err)
	}
	if sym == nil {
		t.Fatalf("expected symbol to be seeded")
	}
	if sym.TotalSupply.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("TotalSupply = %s, want 150", sym.TotalSupply)
	}

	aliceBal, err := ledger.LoadBalance(s, symbolAddr, alice)
	if err != nil {
		t.Fatalf("LoadBalance alice: %v", err)
	}
	if aliceBal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("alice balance = %s, want 100", aliceBal)
	}

	bobBal, err := ledger.LoadBalance(s, symbolAddr, bob)
	if err != nil {
		t.Fatalf("LoadBalance bob: %v", err)
	}
	if bobBal.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("bob balance = %s, want 50", bobBal)
	}
}

func TestSeedRejectsIdentityMismatch(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	configured := testAddr(t, "configured-identity")
	docIdentity := testAddr(t, "different-identity")
	tokenAuthority := testAddr(t, "token-authority")
	accountIdentity := testAddr(t, "account-identity")

	doc := Document{
		Identity:        address.Textual(docIdentity),
		TokenIdentity:   address.Textual(tokenAuthority),
		AccountIdentity: address.Textual(accountIdentity),
	}
	raw, _ := json.Marshal(doc)

	seeder := New(configured)
	if err := seeder.Seed(s.NewBatch(), raw); err == nil {
		t.Fatalf("expected identity mismatch error")
	}
}

func TestSeedRejectsTokenAccountIdentityCollision(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	identity := testAddr(t, "server-identity")
	shared := testAddr(t, "shared-identity")

	doc := Document{
		Identity:        address.Textual(identity),
		TokenIdentity:   address.Textual(shared),
		AccountIdentity: address.Textual(shared),
	}
	raw, _ := json.Marshal(doc)

	seeder := New(identity)
	if err := seeder.Seed(s.NewBatch(), raw); err == nil {
		t.Fatalf("expected token/account identity collision error")
	}
}

func TestSeedRejectsHashMismatch(t *testing.T) {
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	identity := testAddr(t, "server-identity")
	tokenAuthority := testAddr(t, "token-authority")
	accountIdentity := testAddr(t, "account-identity")

	doc := Document{
		Identity:        address.Textual(identity),
		TokenIdentity:   address.Textual(tokenAuthority),
		AccountIdentity: address.Textual(accountIdentity),
		Hash:            "deadbeef",
	}
	raw, _ := json.Marshal(doc)

	seeder := New(identity)
	if err := seeder.Seed(s.NewBatch(), raw); err == nil {
		t.Fatalf("expected hash mismatch error")
	}
}

func TestDocumentParseRoundTrip(t *testing.T) {
	raw := []byte(`{"identity":"invalid-not-an-address"}`)
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Identity != "invalid-not-an-address" {
		t.Fatalf("Identity = %q", doc.Identity)
	}
}
