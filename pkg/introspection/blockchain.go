// Copyright 2025 Certen Protocol
//
// Blockchain Introspection (L11 part 2)
// blockchain.info/blockchain.request/blockchain.response: translate an
// opaque transaction token (the envelope's sha256 hash, per
// pkg/dispatcher's duplicate-cache key) back to the stored raw request or
// response bytes pkg/dispatcher persisted alongside that hash.

package introspection

import (
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// Blockchain answers blockchain.info/blockchain.request/blockchain.response.
type Blockchain struct {
	chainID string
}

// NewBlockchain constructs a Blockchain introspector reporting chainID in
// its Info response.
func NewBlockchain(chainID string) *Blockchain {
	return &Blockchain{chainID: chainID}
}

// Info returns static chain identity, the closest read-only analogue to
// data.info available without a height-scoped attribute set.
func (b *Blockchain) Info() map[string]string {
	return map[string]string{"chain_id": b.chainID}
}

// Request looks up the raw signed request envelope a committed
// transaction carried, by its opaque token (the envelope hash).
func (b *Blockchain) Request(reader store.Reader, token []byte) ([]byte, error) {
	raw, err := reader.Get(store.TxRequestKey(token))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, apperr.New(apperr.ErrGeneric.Code, "blockchain.request: token not found")
	}
	return raw, nil
}

// Response looks up the raw signed response envelope produced for a
// committed transaction, by its opaque token (the envelope hash).
func (b *Blockchain) Response(reader store.Reader, token []byte) ([]byte, error) {
	raw, err := reader.Get(store.TxResponseKey(token))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, apperr.New(apperr.ErrGeneric.Code, "blockchain.response: token not found")
	}
	return raw, nil
}
