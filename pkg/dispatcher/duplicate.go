// Copyright 2025 Certen Protocol

package dispatcher

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/store"
)

// dupPrefix is the scan prefix over every duplicate-envelope cache entry;
// exported indirectly through PruneExpiredDuplicates below.
var dupPrefix = []byte("/dup/")

// PruneExpiredDuplicates removes duplicate-envelope cache entries whose
// TTL height has passed, run from begin-block (spec §4.4/§4.5).
func PruneExpiredDuplicates(batch *store.Batch, s *store.Store, height uint64) error {
	results, err := s.Scan(dupPrefix, store.Ascending, 0)
	if err != nil {
		return fmt.Errorf("dispatcher: scan duplicate cache: %w", err)
	}
	for _, r := range results {
		ttl := store.DecodeUint64(r.Value)
		if ttl < height {
			batch.Delete(r.Key)
		}
	}
	return nil
}
