package migration

import (
	"testing"

	"github.com/manifest-network/manifest-core/pkg/store"
)

func TestRegularActivationWindow(t *testing.T) {
	m := NewRegular("token-migration", 30, []string{"tokens.info"}, nil, nil)

	if m.IsActive(29) {
		t.Fatalf("migration active before activation height")
	}
	if !m.IsActive(30) {
		t.Fatalf("migration inactive at activation height")
	}
	if !m.IsActive(1000) {
		t.Fatalf("migration inactive well after activation")
	}
}

func TestRegularUpperBoundExclusive(t *testing.T) {
	m := NewRegular("legacy-remove-roles", 10, nil, nil, nil).WithUpperBound(20)

	if m.IsActive(9) {
		t.Fatalf("active before window")
	}
	if !m.IsActive(10) || !m.IsActive(19) {
		t.Fatalf("window should include [10, 20)")
	}
	if m.IsActive(20) {
		t.Fatalf("upper bound should be exclusive")
	}
}

func TestDisabledMigrationNeverActivates(t *testing.T) {
	m := NewRegular("disabled-one", 0, nil, nil, nil).Disable()
	for _, h := range []uint64{0, 1, 1000000} {
		if m.IsActive(h) {
			t.Fatalf("disabled migration reported active at height %d", h)
		}
	}
}

func TestHotfixAppliesOnlyAtExactHeight(t *testing.T) {
	applied := 0
	h := NewHotfix("fix-one-value", 42, func(b *store.Batch, ctx BlockContext) error {
		applied++
		return nil
	})

	if h.IsActive(41) || h.IsActive(43) {
		t.Fatalf("hotfix should only be active at its exact height")
	}
	if !h.IsActive(42) {
		t.Fatalf("hotfix should be active at its target height")
	}
	_ = h.Initialize(nil, BlockContext{Height: 42})
	if applied != 1 {
		t.Fatalf("transform applied %d times, want 1", applied)
	}
}

func TestRegistryGatesMethodBeforeActivation(t *testing.T) {
	r := NewRegistry(NewRegular("token-migration", 30, []string{"tokens.info"}, nil, nil))

	if !r.MethodGatedByInactiveMigration("tokens.info", 29) {
		t.Fatalf("method should be gated before activation")
	}
	if r.MethodGatedByInactiveMigration("tokens.info", 30) {
		t.Fatalf("method should not be gated at/after activation")
	}
}

func TestValidateConfiguredRejectsUnknownNames(t *testing.T) {
	r := NewRegistry(NewRegular("known", 0, nil, nil, nil))

	if err := r.ValidateConfigured([]string{"known"}); err != nil {
		t.Fatalf("expected valid configuration, got %v", err)
	}
	if err := r.ValidateConfigured([]string{"unknown"}); err == nil {
		t.Fatalf("expected error for unknown migration name")
	}
	if err := r.ValidateConfigured([]string{"known", "known"}); err == nil {
		t.Fatalf("expected error for duplicate migration name")
	}
}
