// Copyright 2025 Certen Protocol
//
// Ledger Module (L10): symbols, balances, token lifecycle (spec §4.10).
// Grounded on the teacher's pkg/ledger/store.go load/save idiom (typed
// helper pairs, %w-wrapped errors, a thin façade over the KV), rewritten
// entirely for token/balance semantics — the teacher's own ledger has no
// token concept, only system/anchor block metadata.

package ledger

import (
	"math/big"

	"github.com/manifest-network/manifest-core/pkg/address"
)

// ExtInfoIndex names the two well-known extended-info slots (spec §4.10.5).
type ExtInfoIndex uint32

const (
	ExtInfoMemo ExtInfoIndex = 0
	ExtInfoLogo ExtInfoIndex = 1
)

// LogoImage is the {image: {mime, bytes}} shape of ExtInfo[1].
type LogoImage struct {
	Mime  string `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// ExtInfoEntry is one extended-info slot's value: a memo's Text, or a
// logo's Unicode codepoint or Image, depending which slot it occupies.
type ExtInfoEntry struct {
	Text    *string    `cbor:"1,keyasint,omitempty"`
	Unicode *int32     `cbor:"2,keyasint,omitempty"`
	Image   *LogoImage `cbor:"3,keyasint,omitempty"`
}

// Symbol is a fungible token type: a subresource of the configured token
// authority identity, with lifecycle fields mutated by tokens.update/mint/
// burn.
type Symbol struct {
	Address            address.Address        `cbor:"1,keyasint"`
	Name               string                 `cbor:"2,keyasint"`
	Ticker             string                 `cbor:"3,keyasint"`
	Decimals           uint32                 `cbor:"4,keyasint"`
	// Owner nil means immutable: either tokens.create was called with an
	// explicit null owner, or a later tokens.update removed it (spec
	// §4.10.3). Once nil, it can never be set again.
	Owner              *address.Address       `cbor:"5,keyasint,omitempty"`
	TotalSupply        *big.Int               `cbor:"6,keyasint"`
	CirculatingSupply  *big.Int               `cbor:"7,keyasint"`
	MaximumSupply      *big.Int               `cbor:"8,keyasint,omitempty"`
	ExtInfo            map[uint32]ExtInfoEntry `cbor:"9,keyasint,omitempty"`
}

// IsImmutable reports whether symbol rejects further tokens.update calls.
func (s *Symbol) IsImmutable() bool {
	return s.Owner == nil
}
