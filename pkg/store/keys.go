// Copyright 2025 Certen Protocol
//
// Key layout (spec §4.6). The core owns this schema; values are CBOR
// (pkg/wire) except where noted.

package store

import "github.com/manifest-network/manifest-core/pkg/address"

var (
	prefixBalances     = []byte("/balances/")
	prefixSymbol       = []byte("/sym/")
	prefixSymbolByTick = []byte("/sym_by_ticker/")
	prefixAccount      = []byte("/acct/")
	prefixMultisig     = []byte("/multisig/")
	prefixEvents       = []byte("/events/")
	prefixEventsByID   = []byte("/events_by_id/")
	prefixEventsByKind = []byte("/events_by_kind/")
	prefixDup          = []byte("/dup/")
	prefixTxRequest    = []byte("/tx_req/")
	prefixTxResponse   = []byte("/tx_resp/")
	prefixKV           = []byte("/kv/")
	prefixHTTP         = []byte("/http/")
	prefixMigration    = []byte("/migration/")
	prefixIDStore      = []byte("/idstore/")
)

// BalanceKey builds "/balances/" || symbol_addr || owner_addr.
func BalanceKey(symbol, owner address.Address) []byte {
	return concat(prefixBalances, symbol.Bytes(), owner.Bytes())
}

// BalancePrefixForSymbol builds the scan prefix for all balances of symbol.
func BalancePrefixForSymbol(symbol address.Address) []byte {
	return concat(prefixBalances, symbol.Bytes())
}

// BalancePrefixForOwner has no direct index (balances are keyed
// symbol-major); callers needing owner-major lookups use ledger.balance's
// explicit symbol list argument instead of a reverse scan.

// SymbolKey builds "/sym/" || symbol_addr.
func SymbolKey(symbol address.Address) []byte {
	return concat(prefixSymbol, symbol.Bytes())
}

// SymbolsPrefix returns the scan prefix covering every registered Symbol.
func SymbolsPrefix() []byte {
	return append([]byte(nil), prefixSymbol...)
}

// AccountsPrefix returns the scan prefix covering every registered Account.
func AccountsPrefix() []byte {
	return append([]byte(nil), prefixAccount...)
}

// SymbolByTickerKey builds "/sym_by_ticker/" || ticker.
func SymbolByTickerKey(ticker string) []byte {
	return concat(prefixSymbolByTick, []byte(ticker))
}

// SymbolNextIndexKey builds "/sym_meta/next_index/" || token_authority, the
// per-authority counter tokens.create draws subresource indices from.
func SymbolNextIndexKey(tokenAuthority address.Address) []byte {
	return concat([]byte("/sym_meta/next_index/"), tokenAuthority.Bytes())
}

// AccountKey builds "/acct/" || account_addr.
func AccountKey(account address.Address) []byte {
	return concat(prefixAccount, account.Bytes())
}

// AccountNextIndexKey builds "/acct_meta/next_index/" || module_identity,
// the per-identity counter account.create allocates subresource addresses
// from.
func AccountNextIndexKey(moduleIdentity address.Address) []byte {
	return concat([]byte("/acct_meta/next_index/"), moduleIdentity.Bytes())
}

// MultisigKey builds "/multisig/" || token_id.
func MultisigKey(tokenID address.Address) []byte {
	return concat(prefixMultisig, tokenID.Bytes())
}

// MultisigsPrefix returns the scan prefix covering every MultisigTxn, used
// by the begin-block expiration sweep (spec §4.9: "checked lazily in
// begin-block and when any multisig op touches the record").
func MultisigsPrefix() []byte {
	return append([]byte(nil), prefixMultisig...)
}

// EventKey builds "/events/" || height_be || within_block_be.
func EventKey(height uint64, withinBlock uint32) []byte {
	return concat(prefixEvents, beUint64(height), beUint32(withinBlock))
}

// EventByIDKey builds "/events_by_id/" || event_id_be, a direct lookup of
// the encoded Event by its assigned id (independent of the (height,
// within-block) ordering key EventKey uses).
func EventByIDKey(eventID uint64) []byte {
	return concat(prefixEventsByID, beUint64(eventID))
}

// EventsByKindKey builds "/events_by_kind/" || kind || event_id_be.
func EventsByKindKey(kind string, eventID uint64) []byte {
	return concat(prefixEventsByKind, []byte(kind), beUint64(eventID))
}

// EventsByKindPrefix builds the scan prefix for all events of kind.
func EventsByKindPrefix(kind string) []byte {
	return concat(prefixEventsByKind, []byte(kind))
}

// DupKey builds "/dup/" || envelope_hash.
func DupKey(envelopeHash []byte) []byte {
	return concat(prefixDup, envelopeHash)
}

// TxRequestKey builds "/tx_req/" || envelope_hash, the raw signed request
// envelope bytes a committed transaction carried (blockchain.request).
func TxRequestKey(envelopeHash []byte) []byte {
	return concat(prefixTxRequest, envelopeHash)
}

// TxResponseKey builds "/tx_resp/" || envelope_hash, the raw signed
// response envelope bytes produced for that transaction
// (blockchain.response).
func TxResponseKey(envelopeHash []byte) []byte {
	return concat(prefixTxResponse, envelopeHash)
}

// KVKey builds "/kv/" || user_key (k/v module).
func KVKey(userKey []byte) []byte {
	return concat(prefixKV, userKey)
}

// HTTPKey builds "/http/" || owner_addr || "/" || site_name || "/" || path
// (web module).
func HTTPKey(owner address.Address, site, path string) []byte {
	return concat(prefixHTTP, owner.Bytes(), []byte("/"), []byte(site), []byte("/"), []byte(path))
}

// IDStoreKey builds "/idstore/" || credential_id, the seed credential
// store genesis populates from id_store_seed/id_store_keys (spec §6.4).
func IDStoreKey(credentialID []byte) []byte {
	return concat(prefixIDStore, credentialID)
}

// MigrationKey builds "/migration/" || migration_name.
func MigrationKey(name string) []byte {
	return concat(prefixMigration, []byte(name))
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func beUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func beUint32(v uint32) []byte {
	b := make([]byte, 4)
	for i := 0; i < 4; i++ {
		b[3-i] = byte(v >> (8 * i))
	}
	return b
}

// EncodeUint32 and DecodeUint32 are exported for modules (account, ledger)
// that persist their own big-endian subresource-index counters using the
// same convention as the key builders above.
func EncodeUint32(v uint32) []byte { return beUint32(v) }

func DecodeUint32(b []byte) uint32 {
	var v uint32
	for _, by := range b {
		v = v<<8 | uint32(by)
	}
	return v
}

// EncodeUint64 and DecodeUint64 are exported for modules (dispatcher's
// duplicate-envelope TTL, eventlog's counter) that persist big-endian
// uint64 values using the same convention.
func EncodeUint64(v uint64) []byte { return beUint64(v) }

func DecodeUint64(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v
}
