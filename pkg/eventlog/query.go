// Copyright 2025 Certen Protocol
//
// list()/get() query surface over the event log's primary and secondary
// indices.

package eventlog

import (
	"fmt"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Filter narrows list() to events matching a kind and/or an involved
// address. A nil field means "don't filter on this dimension".
type Filter struct {
	Kind    *Kind
	Address *address.Address
}

// Page is one page of list() results plus the cursor to resume from.
type Page struct {
	Events     []Event
	NextCursor uint64
	HasMore    bool
}

// Reader is the read side this package needs; both *store.Store and
// *store.Batch satisfy it.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

// ScanReader extends Reader with the prefix scan List needs to walk the
// primary/kind/address indices; both *store.Store and *store.Batch satisfy
// this too.
type ScanReader interface {
	Reader
	Scan(prefix []byte, dir store.Direction, limit int) ([]store.ScanResult, error)
}

// Get fetches a single event by id.
func Get(s Reader, eventID uint64) (*Event, error) {
	raw, err := s.Get(store.EventByIDKey(eventID))
	if err != nil {
		return nil, fmt.Errorf("eventlog: get %d: %w", eventID, err)
	}
	if raw == nil {
		return nil, nil
	}
	var ev Event
	if err := wire.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("eventlog: decode event %d: %w", eventID, err)
	}
	return &ev, nil
}

// List returns events matching filter in id order, starting strictly after
// cursor (0 for the first page), up to limit entries (0 means unbounded).
func List(s ScanReader, filter Filter, order store.Direction, cursor uint64, limit int) (*Page, error) {
	ids, err := candidateIDs(s, filter, order)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	for _, id := range ids {
		if cursor != 0 {
			if order == store.Ascending && id <= cursor {
				continue
			}
			if order == store.Descending && id >= cursor {
				continue
			}
		}
		if filter.Address != nil || filter.Kind != nil {
			ev, err := Get(s, id)
			if err != nil {
				return nil, err
			}
			if ev == nil {
				continue
			}
			if filter.Kind != nil && ev.Kind != *filter.Kind {
				continue
			}
			if filter.Address != nil && !containsAddress(ev.Addresses, *filter.Address) {
				continue
			}
			if limit > 0 && len(page.Events) >= limit {
				page.HasMore = true
				break
			}
			page.Events = append(page.Events, *ev)
			page.NextCursor = id
			continue
		}

		if limit > 0 && len(page.Events) >= limit {
			page.HasMore = true
			break
		}
		ev, err := Get(s, id)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		page.Events = append(page.Events, *ev)
		page.NextCursor = id
	}
	return page, nil
}

// candidateIDs gathers the id set to walk for a given filter: the kind
// index when a kind filter is set, the address index when only an address
// filter is set, or the full primary-by-id range otherwise.
func candidateIDs(s ScanReader, filter Filter, order store.Direction) ([]uint64, error) {
	switch {
	case filter.Kind != nil:
		results, err := s.Scan(store.EventsByKindPrefix(string(*filter.Kind)), order, 0)
		if err != nil {
			return nil, fmt.Errorf("eventlog: scan kind index: %w", err)
		}
		return idsFromValues(results), nil
	case filter.Address != nil:
		results, err := s.Scan(addressIndexPrefix(*filter.Address), order, 0)
		if err != nil {
			return nil, fmt.Errorf("eventlog: scan address index: %w", err)
		}
		return idsFromValues(results), nil
	default:
		results, err := s.Scan([]byte("/events_by_id/"), order, 0)
		if err != nil {
			return nil, fmt.Errorf("eventlog: scan primary index: %w", err)
		}
		ids := make([]uint64, len(results))
		for i, r := range results {
			ids[i] = decodeUint64(r.Key[len("/events_by_id/"):])
		}
		return ids, nil
	}
}

func idsFromValues(results []store.ScanResult) []uint64 {
	ids := make([]uint64, len(results))
	for i, r := range results {
		ids[i] = decodeUint64(r.Value)
	}
	return ids
}

func addressIndexPrefix(addr address.Address) []byte {
	return append([]byte("/events_by_addr/"), addr.Bytes()...)
}

func containsAddress(haystack []address.Address, needle address.Address) bool {
	for _, a := range haystack {
		if a == needle {
			return true
		}
	}
	return false
}
