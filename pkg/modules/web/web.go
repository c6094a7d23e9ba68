// Copyright 2025 Certen Protocol
//
// Static-site registry module — sketched only as an example of how an
// application module composes on top of the core (spec §1), not
// specified in full. A Site is an owner-scoped named collection of
// path -> content pages, gated by the canWebDeploy/canWebUpdate/
// canWebRemove roles (spec §4.9) the same way kvstore gates its entries.

package web

import (
	"fmt"
	"sort"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/apperr"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Page is one stored path's content and content type.
type Page struct {
	ContentType string `cbor:"1,keyasint"`
	Body        []byte `cbor:"2,keyasint"`
}

// Reader is the read side this package needs.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

func load(r Reader, owner address.Address, site, path string) (*Page, error) {
	raw, err := r.Get(store.HTTPKey(owner, site, path))
	if err != nil {
		return nil, fmt.Errorf("web: load %s/%s/%s: %w", address.Textual(owner), site, path, err)
	}
	if raw == nil {
		return nil, nil
	}
	var p Page
	if err := wire.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("web: decode %s/%s/%s: %w", address.Textual(owner), site, path, err)
	}
	return &p, nil
}

// Load is the public read path web.request (not itself a dispatcher
// method; the HTTP edge proxy, out of scope per spec §1, is the one
// normally calling it).
func Load(r Reader, owner address.Address, site, path string) (*Page, error) {
	return load(r, owner, site, path)
}

func authorize(batch *store.Batch, owner, sender address.Address, role account.Role) error {
	if sender == owner {
		return nil
	}
	acct, err := account.Load(batch, owner)
	if err != nil {
		return err
	}
	if acct != nil && acct.HasRole(sender, role) {
		return nil
	}
	return apperr.ErrMissingPermission.WithField("role", string(role))
}

// Deploy creates or replaces each page given in pages within batch. Pages
// of site already stored under paths not in pages are left in place.
func Deploy(batch *store.Batch, owner, sender address.Address, site string, pages map[string]Page) error {
	if err := authorize(batch, owner, sender, account.RoleCanWebDeploy); err != nil {
		return err
	}
	for _, path := range sortedPaths(pages) {
		page := pages[path]
		encoded, err := wire.Marshal(&page)
		if err != nil {
			return fmt.Errorf("web: encode %s: %w", path, err)
		}
		batch.Put(store.HTTPKey(owner, site, path), encoded)
	}
	return nil
}

// Update replaces or adds the named pages without touching the rest of
// the site.
func Update(batch *store.Batch, owner, sender address.Address, site string, pages map[string]Page) error {
	if err := authorize(batch, owner, sender, account.RoleCanWebUpdate); err != nil {
		return err
	}
	for _, path := range sortedPaths(pages) {
		page := pages[path]
		encoded, err := wire.Marshal(&page)
		if err != nil {
			return fmt.Errorf("web: encode %s: %w", path, err)
		}
		batch.Put(store.HTTPKey(owner, site, path), encoded)
	}
	return nil
}

// Remove deletes the named paths from site.
func Remove(batch *store.Batch, owner, sender address.Address, site string, paths []string) error {
	if err := authorize(batch, owner, sender, account.RoleCanWebRemove); err != nil {
		return err
	}
	for _, path := range paths {
		batch.Delete(store.HTTPKey(owner, site, path))
	}
	return nil
}

func sortedPaths(pages map[string]Page) []string {
	paths := make([]string, 0, len(pages))
	for p := range pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
