// Copyright 2025 Certen Protocol
//
// Data Introspection (L11 part 1)
// data.info/data.getInfo/data.query: attribute-negotiation queries over
// which optional method groups this build compiled in, mirroring the
// many-rs "attribute" discovery mechanism referenced by SPEC_FULL.md §3.
// Grounded on the teacher's pkg/server/ledger_handlers.go query-by-key
// style (height-aware, not-found handling), re-homed from HTTP handlers
// onto dispatcher methods.

package introspection

import (
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
)

// AttributeID tags one data attribute in the negotiation response.
type AttributeID uint64

const (
	AttrTokensEnabled   AttributeID = 1
	AttrMultisigEnabled AttributeID = 2
	AttrKVStoreEnabled  AttributeID = 3
	AttrWebEnabled      AttributeID = 4
	AttrAccountCount    AttributeID = 5
)

// accountCountMigration gates the whole attribute set, not just the
// account-count attribute: spec §4.11 requires an empty set before
// activation.
const accountCountMigration = "account-count-data-attribute"

// scanReader is the read contract data.info needs beyond plain Get: a
// prefix scan to count registered accounts. Both *store.Store (check-tx,
// query) and *store.Batch (deliver-tx) satisfy it.
type scanReader interface {
	store.Reader
	Scan(prefix []byte, dir store.Direction, limit int) ([]store.ScanResult, error)
}

// Data answers data.info/data.getInfo/data.query.
type Data struct {
	dispatcher *dispatcher.Registry
	migrations *migration.Registry
}

// NewData constructs a Data introspector bound to the live dispatch table
// and migration registry.
func NewData(reg *dispatcher.Registry, migrations *migration.Registry) *Data {
	return &Data{dispatcher: reg, migrations: migrations}
}

// Info returns the full set of currently advertised attributes, or an
// empty set before the account-count-data-attribute migration activates.
func (d *Data) Info(reader store.Reader, height uint64) (map[AttributeID][]byte, error) {
	if !d.migrations.IsActive(accountCountMigration, height) {
		return map[AttributeID][]byte{}, nil
	}

	attrs := make(map[AttributeID][]byte)
	if d.dispatcher.Registered("tokens.create") {
		attrs[AttrTokensEnabled] = []byte{1}
	}
	if d.dispatcher.Registered("multisig.submit") {
		attrs[AttrMultisigEnabled] = []byte{1}
	}
	if d.dispatcher.Registered("kvstore.put") {
		attrs[AttrKVStoreEnabled] = []byte{1}
	}
	if d.dispatcher.Registered("web.deploy") {
		attrs[AttrWebEnabled] = []byte{1}
	}

	if sr, ok := reader.(scanReader); ok {
		count, err := accountCount(sr)
		if err != nil {
			return nil, err
		}
		attrs[AttrAccountCount] = store.EncodeUint64(count)
	}

	return attrs, nil
}

// GetInfo filters Info's full set down to the requested keys.
func (d *Data) GetInfo(reader store.Reader, height uint64, keys []uint64) (map[AttributeID][]byte, error) {
	full, err := d.Info(reader, height)
	if err != nil {
		return nil, err
	}
	out := make(map[AttributeID][]byte, len(keys))
	for _, k := range keys {
		if v, ok := full[AttributeID(k)]; ok {
			out[AttributeID(k)] = v
		}
	}
	return out, nil
}

// Query is data.query: identical read-only semantics to GetInfo, exposed
// under the spec's separate method name for client discoverability.
func (d *Data) Query(reader store.Reader, height uint64, keys []uint64) (map[AttributeID][]byte, error) {
	return d.GetInfo(reader, height, keys)
}

func accountCount(sr scanReader) (uint64, error) {
	results, err := sr.Scan(store.AccountsPrefix(), store.Ascending, 0)
	if err != nil {
		return 0, err
	}
	return uint64(len(results)), nil
}
