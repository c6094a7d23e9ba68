// Copyright 2025 Certen Protocol
//
// Seeder turns a parsed Document into store mutations, implementing
// pkg/consensus's GenesisSeeder contract. No teacher precedent; grounded
// on the spec's own §6.4 field list and on pkg/ledger/pkg/account's
// existing save helpers for the actual persistence shape.

package genesis

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/ledger"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// Seeder seeds a fresh store from a genesis Document at InitChain.
type Seeder struct {
	// ExpectedIdentity, if non-zero, must match the document's declared
	// identity — the server refuses to boot against a genesis document
	// meant for a different signing key.
	ExpectedIdentity address.Address
}

// New constructs a Seeder that cross-checks the document's identity field
// against expectedIdentity (the address derived from the configured
// signing key).
func New(expectedIdentity address.Address) *Seeder {
	return &Seeder{ExpectedIdentity: expectedIdentity}
}

// Seed implements consensus.GenesisSeeder.
func (g *Seeder) Seed(batch *store.Batch, appStateBytes []byte) error {
	doc, err := Parse(appStateBytes)
	if err != nil {
		return err
	}

	identity, err := address.Parse(doc.Identity)
	if err != nil {
		return fmt.Errorf("genesis: identity: %w", err)
	}
	if !g.ExpectedIdentity.IsAnonymous() && identity != g.ExpectedIdentity {
		return fmt.Errorf("genesis: document identity %s does not match configured signing key", doc.Identity)
	}

	tokenAuthority, err := address.Parse(doc.TokenIdentity)
	if err != nil {
		return fmt.Errorf("genesis: token_identity: %w", err)
	}
	accountIdentity, err := address.Parse(doc.AccountIdentity)
	if err != nil {
		return fmt.Errorf("genesis: account_identity: %w", err)
	}
	if tokenAuthority == accountIdentity {
		return fmt.Errorf("genesis: token_identity and account_identity must differ")
	}

	batch.Put(store.SymbolNextIndexKey(tokenAuthority), store.EncodeUint32(doc.TokenNextSubresource))

	nameToAddr := make(map[string]address.Address, len(doc.Symbols))
	symbols := make(map[address.Address]*ledger.Symbol, len(doc.Symbols))
	for addrStr, name := range doc.Symbols {
		addr, err := address.Parse(addrStr)
		if err != nil {
			return fmt.Errorf("genesis: symbol address %q: %w", addrStr, err)
		}
		meta := doc.SymbolsMeta[addrStr]
		symbols[addr] = &ledger.Symbol{
			Address:           addr,
			Name:              meta.Name,
			Ticker:            name,
			Decimals:          meta.Decimals,
			Owner:             &tokenAuthority,
			TotalSupply:       big.NewInt(0),
			CirculatingSupply: big.NewInt(0),
		}
		nameToAddr[name] = addr
	}

	for _, ownerStr := range sortedKeys(doc.Initial) {
		owner, err := address.Parse(ownerStr)
		if err != nil {
			return fmt.Errorf("genesis: initial-distribution owner %q: %w", ownerStr, err)
		}
		perSymbol := doc.Initial[ownerStr]
		for _, symbolName := range sortedKeys(perSymbol) {
			amountStr := perSymbol[symbolName]
			symAddr, ok := nameToAddr[symbolName]
			if !ok {
				return fmt.Errorf("genesis: initial distribution references unknown symbol %q", symbolName)
			}
			amount, ok := new(big.Int).SetString(amountStr, 10)
			if !ok {
				return fmt.Errorf("genesis: initial distribution amount %q is not a decimal integer", amountStr)
			}
			sym := symbols[symAddr]
			sym.TotalSupply.Add(sym.TotalSupply, amount)
			sym.CirculatingSupply.Add(sym.CirculatingSupply, amount)
			ledger.SaveBalance(batch, symAddr, owner, amount)
		}
	}

	for _, addr := range sortedAddresses(symbols) {
		if err := ledger.SaveSymbol(batch, symbols[addr]); err != nil {
			return fmt.Errorf("genesis: save symbol: %w", err)
		}
	}

	for credIDHex, pubKey := range doc.IDStoreKeys {
		credID, err := hex.DecodeString(credIDHex)
		if err != nil {
			return fmt.Errorf("genesis: id_store_keys credential id %q: %w", credIDHex, err)
		}
		batch.Put(store.IDStoreKey(credID), pubKey)
	}
	if len(doc.IDStoreSeed) > 0 {
		batch.Put(store.IDStoreKey([]byte("__seed")), doc.IDStoreSeed)
	}

	if doc.Hash != "" {
		predicted, err := store.PredictRoot(batch, nil)
		if err != nil {
			return fmt.Errorf("genesis: predict root: %w", err)
		}
		if hex.EncodeToString(predicted) != doc.Hash {
			return fmt.Errorf("genesis: computed initial state hash %x does not match document hash %s", predicted, doc.Hash)
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAddresses(m map[address.Address]*ledger.Symbol) []address.Address {
	keys := make([]address.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i].Bytes()) < string(keys[j].Bytes())
	})
	return keys
}
