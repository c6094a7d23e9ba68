// Copyright 2025 Certen Protocol
//
// The statically enumerated migration list (spec §4.7/§9): the eight named
// migrations referenced by name throughout pkg/ledger, pkg/account,
// pkg/eventlog, pkg/introspection and pkg/dispatcher. Activation heights are
// chain-specific (decided by the operators of a given network, not by this
// code) so they're threaded in from configuration rather than hardcoded;
// see DESIGN.md's Open Question decisions for the defaults applied when a
// height isn't explicitly configured.

package migration

// Heights carries the configured activation height for each named
// migration. A name absent from the map gets BuildRegistry's documented
// default, which for every migration here is "disabled" (activate_at =
// infinity) except memo-uniformity, account-count-data-attribute and
// legacy-remove-roles, which default to active from genesis: a fresh chain
// has no legacy window to preserve, so there's no reason it would want the
// old behavior at height 0.
type Heights map[string]uint64

const (
	NameTokenMigration              = "token-migration"
	NameTokenCreateForAll           = "token-create-for-all"
	NameDisableTokenCreate          = "disable-token-create"
	NameDisableTokenMint            = "disable-token-mint"
	NameLegacyRemoveRoles           = "legacy-remove-roles"
	NameLegacyRemoveRolesUpper      = "legacy-remove-roles.upper"
	NameLegacyInsufficientFundsCode = "legacy-insufficient-funds-code"
	NameAccountCountDataAttribute   = "account-count-data-attribute"
	NameMemoUniformity              = "memo-uniformity"
)

// disabledHeight is large enough that, absent explicit configuration, a
// migration never activates on any realistically long-lived chain.
const disabledHeight = ^uint64(0)

// BuildRegistry constructs the registry every dispatcher.Registry is wired
// against. tokenMethods is the full tokens.* surface the Token Migration
// gates with method-not-found before activation.
func BuildRegistry(heights Heights, tokenMethods []string) *Registry {
	height := func(name string, def uint64) uint64 {
		if h, ok := heights[name]; ok {
			return h
		}
		return def
	}

	tokenMigration := NewRegular(NameTokenMigration, height(NameTokenMigration, disabledHeight), tokenMethods, nil, nil)
	tokenCreateForAll := NewRegular(NameTokenCreateForAll, height(NameTokenCreateForAll, disabledHeight), nil, nil, nil)
	disableTokenCreate := NewRegular(NameDisableTokenCreate, height(NameDisableTokenCreate, disabledHeight), nil, nil, nil)
	disableTokenMint := NewRegular(NameDisableTokenMint, height(NameDisableTokenMint, disabledHeight), nil, nil, nil)

	legacyRemoveRoles := NewRegular(NameLegacyRemoveRoles, height(NameLegacyRemoveRoles, 0), nil, nil, nil)
	if upper, ok := heights[NameLegacyRemoveRolesUpper]; ok {
		legacyRemoveRoles.WithUpperBound(upper)
	}

	legacyInsufficientFundsCode := NewRegular(NameLegacyInsufficientFundsCode, height(NameLegacyInsufficientFundsCode, disabledHeight), nil, nil, nil)
	accountCountDataAttribute := NewRegular(NameAccountCountDataAttribute, height(NameAccountCountDataAttribute, 0), nil, nil, nil)
	memoUniformity := NewRegular(NameMemoUniformity, height(NameMemoUniformity, 0), nil, nil, nil)

	return NewRegistry(
		tokenMigration,
		tokenCreateForAll,
		disableTokenCreate,
		disableTokenMint,
		legacyRemoveRoles,
		legacyInsufficientFundsCode,
		accountCountDataAttribute,
		memoUniformity,
	)
}
