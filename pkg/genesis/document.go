// Copyright 2025 Certen Protocol
//
// Genesis Document (spec §6.4). No teacher precedent — the teacher has no
// genesis-document concept, only a hardcoded validator bootstrap; this
// package is original to the spec, JSON-decoded with the standard library
// the way CometBFT's own genesis.json is conventionally handled.

package genesis

import (
	"encoding/json"
	"fmt"
)

// Document is the JSON-level genesis shape: addresses and amounts are
// textual (base32 addresses, decimal-string u256 amounts) so the document
// is human-editable and diffable.
type Document struct {
	// Identity is the server's own address; must match the address
	// derived from the configured signing key.
	Identity string `json:"identity"`

	// Initial is owner_address -> symbol_name -> decimal amount string.
	Initial map[string]map[string]string `json:"initial"`

	// Symbols is symbol_address -> symbol_name.
	Symbols map[string]string `json:"symbols"`

	// SymbolsMeta is symbol_address -> {name, decimals}.
	SymbolsMeta map[string]SymbolMeta `json:"symbols_meta"`

	TokenIdentity        string `json:"token_identity"`
	TokenNextSubresource uint32 `json:"token_next_subresource"`
	AccountIdentity      string `json:"account_identity"`

	// IDStoreSeed is an opaque seed blob for the credential store,
	// base64-encoded by encoding/json's []byte handling.
	IDStoreSeed []byte `json:"id_store_seed,omitempty"`
	// IDStoreKeys is credential_id (hex) -> public key bytes (base64).
	IDStoreKeys map[string][]byte `json:"id_store_keys,omitempty"`

	// Hash, if present, must equal the computed initial state root;
	// mismatch aborts startup. Hex-encoded.
	Hash string `json:"hash,omitempty"`
}

// SymbolMeta carries a symbol's display metadata.
type SymbolMeta struct {
	Name     string `json:"name"`
	Decimals uint32 `json:"decimals"`
}

// Parse decodes a genesis document from raw JSON bytes.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("genesis: decode document: %w", err)
	}
	return &doc, nil
}
