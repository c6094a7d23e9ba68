// Copyright 2025 Certen Protocol

package ledger

import (
	"fmt"
	"math/big"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Reader is the read side this package needs; both *store.Store and
// *store.Batch satisfy it, so handlers see their own uncommitted writes
// within a deliver-tx.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

// ScanReader extends Reader with the prefix scan ListBalances needs to
// enumerate every symbol an owner holds; both *store.Store and
// *store.Batch satisfy this too.
type ScanReader interface {
	Reader
	Scan(prefix []byte, dir store.Direction, limit int) ([]store.ScanResult, error)
}

// LoadSymbol reads a Symbol by address. A nil, nil result means absent.
func LoadSymbol(r Reader, symbol address.Address) (*Symbol, error) {
	raw, err := r.Get(store.SymbolKey(symbol))
	if err != nil {
		return nil, fmt.Errorf("ledger: load symbol %x: %w", symbol[:], err)
	}
	if raw == nil {
		return nil, nil
	}
	var s Symbol
	if err := wire.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("ledger: decode symbol %x: %w", symbol[:], err)
	}
	return &s, nil
}

// RequireSymbol is LoadSymbol with a client-facing not-found error.
func RequireSymbol(r Reader, symbol address.Address) (*Symbol, error) {
	s, err := LoadSymbol(r, symbol)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.New(-1, "symbol not found: %x", symbol[:])
	}
	return s, nil
}

// SaveSymbol persists s, including the ticker-lookup secondary index.
func SaveSymbol(batch *store.Batch, s *Symbol) error {
	encoded, err := wire.Marshal(s)
	if err != nil {
		return fmt.Errorf("ledger: encode symbol %x: %w", s.Address[:], err)
	}
	batch.Put(store.SymbolKey(s.Address), encoded)
	batch.Put(store.SymbolByTickerKey(s.Ticker), s.Address.Bytes())
	return nil
}

// LoadSymbolByTicker resolves a ticker to its Symbol via the secondary
// index; nil, nil if no symbol has claimed it.
func LoadSymbolByTicker(r Reader, ticker string) (*Symbol, error) {
	raw, err := r.Get(store.SymbolByTickerKey(ticker))
	if err != nil {
		return nil, fmt.Errorf("ledger: load ticker %q: %w", ticker, err)
	}
	if raw == nil {
		return nil, nil
	}
	var symbolAddr address.Address
	copy(symbolAddr[:], raw)
	return LoadSymbol(r, symbolAddr)
}

// LoadBalance reads owner's balance of symbol; absent is zero, never an
// error.
func LoadBalance(r Reader, symbol, owner address.Address) (*big.Int, error) {
	raw, err := r.Get(store.BalanceKey(symbol, owner))
	if err != nil {
		return nil, fmt.Errorf("ledger: load balance: %w", err)
	}
	if raw == nil {
		return big.NewInt(0), nil
	}
	amount := new(big.Int).SetBytes(raw)
	return amount, nil
}

// SaveBalance persists owner's balance of symbol, deleting the entry
// entirely when it reaches zero (spec §4.10.2: "both balances are created
// or deleted lazily").
func SaveBalance(batch *store.Batch, symbol, owner address.Address, amount *big.Int) {
	key := store.BalanceKey(symbol, owner)
	if amount.Sign() == 0 {
		batch.Delete(key)
		return
	}
	batch.Put(key, amount.Bytes())
}

// ListBalances returns every non-zero symbol balance owner holds, when
// symbols is empty, or only the named symbols' balances otherwise (spec
// §4.10.2: "returns only present entries").
func ListBalances(s ScanReader, owner address.Address, symbols []address.Address) (map[address.Address]*big.Int, error) {
	out := make(map[address.Address]*big.Int)
	if len(symbols) > 0 {
		for _, sym := range symbols {
			amount, err := LoadBalance(s, sym, owner)
			if err != nil {
				return nil, err
			}
			if amount.Sign() > 0 {
				out[sym] = amount
			}
		}
		return out, nil
	}

	// No symbol filter: the balance key is symbol-major ("/balances/" ||
	// symbol || owner), so an owner-wide scan needs every symbol in turn.
	// Symbols are typically few enough in practice (per-chain token count)
	// that this is a bounded fan-out, not an unbounded table scan.
	prefix := store.SymbolsPrefix()
	results, err := s.Scan(prefix, store.Ascending, 0)
	if err != nil {
		return nil, fmt.Errorf("ledger: scan symbols: %w", err)
	}
	for _, r := range results {
		var symAddr address.Address
		copy(symAddr[:], r.Key[len(prefix):])
		amount, err := LoadBalance(s, symAddr, owner)
		if err != nil {
			return nil, err
		}
		if amount.Sign() > 0 {
			out[symAddr] = amount
		}
	}
	return out, nil
}

// nextSymbolIndex allocates and persists the next subresource index for
// tokenAuthority.
func nextSymbolIndex(batch *store.Batch, tokenAuthority address.Address) (uint32, error) {
	key := store.SymbolNextIndexKey(tokenAuthority)
	raw, err := batch.Get(key)
	if err != nil {
		return 0, fmt.Errorf("ledger: load next symbol index: %w", err)
	}
	var idx uint32
	if raw != nil {
		idx = store.DecodeUint32(raw)
	}
	if idx >= address.MaxSubresourceIndex {
		return 0, apperr.ErrSubresourcesExhausted
	}
	batch.Put(key, store.EncodeUint32(idx+1))
	return idx, nil
}
