// Copyright 2025 Certen Protocol
//
// The two migration variants named in spec §4.7: Regular (an
// activate/upper-bound window with optional per-block update) and Hotfix (a
// one-block point transform). Activation windows are [activate, upper),
// upper exclusive, resolving the Open Question in spec §9.

package migration

import "github.com/manifest-network/manifest-core/pkg/store"

// UpdateHook runs in begin-block for every block the migration is active.
type UpdateHook func(batch *store.Batch, ctx BlockContext) error

// InitHook runs exactly once at the activation height.
type InitHook func(batch *store.Batch, ctx BlockContext) error

// Regular is a migration that activates at a height and, optionally,
// deactivates again at an upper bound. While active its altered behavior
// applies and its UpdateBlock hook (if any) runs every block.
type Regular struct {
	name       string
	activateAt uint64
	upperBound uint64 // 0 means unbounded
	hasUpper   bool
	methods    map[string]bool
	init       InitHook
	update     UpdateHook
	disabled   bool
}

// NewRegular constructs a Regular migration. disabled is equivalent to
// activate_at = infinity per spec §4.7.
func NewRegular(name string, activateAt uint64, methods []string, init InitHook, update UpdateHook) *Regular {
	m := &Regular{name: name, activateAt: activateAt, methods: toSet(methods), init: init, update: update}
	return m
}

// WithUpperBound sets an exclusive deactivation height.
func (m *Regular) WithUpperBound(upper uint64) *Regular {
	m.upperBound = upper
	m.hasUpper = true
	return m
}

// Disable marks the migration as never activating.
func (m *Regular) Disable() *Regular {
	m.disabled = true
	return m
}

func (m *Regular) Name() string { return m.name }

func (m *Regular) IsActive(height uint64) bool {
	if m.disabled {
		return false
	}
	if height < m.activateAt {
		return false
	}
	if m.hasUpper && height >= m.upperBound {
		return false
	}
	return true
}

func (m *Regular) Initialize(batch *store.Batch, ctx BlockContext) error {
	if m.init == nil {
		return nil
	}
	return m.init(batch, ctx)
}

func (m *Regular) UpdateBlock(batch *store.Batch, ctx BlockContext) error {
	if m.update == nil {
		return nil
	}
	return m.update(batch, ctx)
}

func (m *Regular) AffectsMethod(method string) bool {
	return m.methods[method]
}

// PointTransform mutates a single stored value during a hotfix's matching
// block.
type PointTransform func(batch *store.Batch, ctx BlockContext) error

// Hotfix is a point function applied only during the block whose height
// matches, to transform a specific value at a specific key without lasting
// state divergence (spec §4.7).
type Hotfix struct {
	name      string
	height    uint64
	transform PointTransform
	disabled  bool
}

// NewHotfix constructs a Hotfix migration applied exactly at height.
func NewHotfix(name string, height uint64, transform PointTransform) *Hotfix {
	return &Hotfix{name: name, height: height, transform: transform}
}

func (h *Hotfix) Disable() *Hotfix {
	h.disabled = true
	return h
}

func (h *Hotfix) Name() string { return h.name }

// IsActive is true only for the exact target block; a hotfix has no
// lasting "post-activation behavior" beyond that single block.
func (h *Hotfix) IsActive(height uint64) bool {
	return !h.disabled && height == h.height
}

func (h *Hotfix) Initialize(batch *store.Batch, ctx BlockContext) error {
	if h.transform == nil {
		return nil
	}
	return h.transform(batch, ctx)
}

func (h *Hotfix) UpdateBlock(batch *store.Batch, ctx BlockContext) error {
	return nil
}

func (h *Hotfix) AffectsMethod(method string) bool {
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
