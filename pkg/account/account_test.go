package account

import (
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/eventlog"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.NewKVAdapter(dbm.NewMemDB()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestCreateGrantsSenderOwner(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	sender := address.FromPublicKeyCOSE([]byte("sender"))

	acct, err := Create(b, moduleIdentity, sender, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !acct.IsOwner(sender) {
		t.Fatalf("sender should be owner of new account")
	}
	if acct.Address.Kind() != address.KindSubresource {
		t.Fatalf("account address should be a subresource, got kind %v", acct.Address.Kind())
	}
}

func TestCreateAllocatesDistinctSubresources(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	sender := address.FromPublicKeyCOSE([]byte("sender"))

	a1, err := Create(b, moduleIdentity, sender, nil)
	if err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	a2, err := Create(b, moduleIdentity, sender, nil)
	if err != nil {
		t.Fatalf("Create 2: %v", err)
	}
	if a1.Address == a2.Address {
		t.Fatalf("two accounts got the same address")
	}
}

func TestAddRolesRequiresOwner(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))
	stranger := address.FromPublicKeyCOSE([]byte("stranger"))
	grantee := address.FromPublicKeyCOSE([]byte("grantee"))

	acct, err := Create(b, moduleIdentity, owner, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := AddRoles(b, acct.Address, stranger, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}}); err == nil {
		t.Fatalf("expected permission error for non-owner addRoles")
	}

	updated, err := AddRoles(b, acct.Address, owner, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}})
	if err != nil {
		t.Fatalf("AddRoles: %v", err)
	}
	if !updated.HasRole(grantee, RoleCanLedgerTransact) {
		t.Fatalf("grantee did not receive role")
	}
}

func TestRemoveRolesLegacyKeepsEmptyEntry(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))
	grantee := address.FromPublicKeyCOSE([]byte("grantee"))

	acct, _ := Create(b, moduleIdentity, owner, nil)
	acct, _ = AddRoles(b, acct.Address, owner, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}})

	legacyKept, err := RemoveRoles(b, acct.Address, owner, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}}, true)
	if err != nil {
		t.Fatalf("RemoveRoles (legacy): %v", err)
	}
	found := false
	for _, g := range legacyKept.Grants {
		if g.Grantee == grantee {
			found = true
			if len(g.Roles) != 0 {
				t.Fatalf("expected empty role list, got %v", g.Roles)
			}
		}
	}
	if !found {
		t.Fatalf("legacy-remove-roles should keep an empty entry, grantee missing entirely")
	}
}

func TestRemoveRolesDropsEmptyEntryOutsideMigration(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))
	grantee := address.FromPublicKeyCOSE([]byte("grantee"))

	acct, _ := Create(b, moduleIdentity, owner, nil)
	acct, _ = AddRoles(b, acct.Address, owner, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}})

	updated, err := RemoveRoles(b, acct.Address, owner, map[address.Address][]Role{grantee: {RoleCanLedgerTransact}}, false)
	if err != nil {
		t.Fatalf("RemoveRoles: %v", err)
	}
	for _, g := range updated.Grants {
		if g.Grantee == grantee {
			t.Fatalf("expected grantee entry to be dropped entirely")
		}
	}
}

func TestDisableRejectsWrites(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(b, moduleIdentity, owner, nil)
	disabled, err := Disable(b, acct.Address, owner)
	if err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if err := RequireEnabled(disabled); err == nil {
		t.Fatalf("expected RequireEnabled to reject a disabled account")
	}
}

func TestMultisigSubmitApproveAutoExecutes(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))
	approver1 := address.FromPublicKeyCOSE([]byte("a1"))
	approver2 := address.FromPublicKeyCOSE([]byte("a2"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 3600, ExecuteAutomatically: true})
	acct, _ = AddRoles(b, acct.Address, owner, map[address.Address][]Role{
		approver1: {RoleCanMultisigSubmit, RoleCanMultisigApprove},
		approver2: {RoleCanMultisigApprove},
	})

	txn, err := Submit(b, acct, approver1, "ledger.send", []byte("payload"), 1000)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	disp := &fakeDispatcher{code: 0, result: []byte("ok")}

	txn, err = Approve(b, acct, txn, approver1, 1, time.Unix(1000, 0), disp)
	if err != nil {
		t.Fatalf("Approve 1: %v", err)
	}
	if txn.Status != StatusPending {
		t.Fatalf("should still be pending after 1 of 2 approvals")
	}

	txn, err = Approve(b, acct, txn, approver2, 1, time.Unix(1000, 0), disp)
	if err != nil {
		t.Fatalf("Approve 2: %v", err)
	}
	if txn.Status != StatusExecuted {
		t.Fatalf("expected auto-execute at threshold, got %v", txn.Status)
	}
	if !disp.called {
		t.Fatalf("inner dispatcher was never invoked")
	}
}

func TestMultisigExecutedIsTerminalEvenOnInnerFailure(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 1, ExpireAfterSeconds: 3600})
	txn, err := Submit(b, acct, owner, "ledger.send", []byte("payload"), 1000)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	disp := &fakeDispatcher{failErr: errGeneric}
	txn, err = Approve(b, acct, txn, owner, 1, time.Unix(1000, 0), disp)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	txn, err = Execute(b, acct, txn, 1, time.Unix(1000, 0), disp)
	if err != nil {
		t.Fatalf("Execute should not itself error when inner tx fails: %v", err)
	}
	if txn.Status != StatusExecuted {
		t.Fatalf("expected terminal Executed status despite inner failure, got %v", txn.Status)
	}

	if _, err := Execute(b, acct, txn, 1, time.Unix(1000, 0), disp); err == nil {
		t.Fatalf("re-executing a terminal multisig should fail")
	}
}

func TestMultisigApproveAfterExecutionRejected(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 1, ExecuteAutomatically: true, ExpireAfterSeconds: 3600})
	txn, _ := Submit(b, acct, owner, "ledger.send", nil, 1000)
	disp := &fakeDispatcher{}
	txn, err := Approve(b, acct, txn, owner, 1, time.Unix(1000, 0), disp)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if txn.Status != StatusExecuted {
		t.Fatalf("expected auto-execute")
	}

	if _, err := Approve(b, acct, txn, owner, 1, time.Unix(1000, 0), disp); err == nil {
		t.Fatalf("approving an executed multisig should be rejected")
	}
}

func TestMultisigRevokeUnapprovedRejected(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 3600})
	txn, _ := Submit(b, acct, owner, "ledger.send", nil, 1000)

	other := address.FromPublicKeyCOSE([]byte("other"))
	if _, err := Revoke(b, txn, other, 1000); err == nil {
		t.Fatalf("revoking an approval never given should be rejected")
	}
}

func TestMultisigExpiresLazily(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 10})
	txn, _ := Submit(b, acct, owner, "ledger.send", nil, 1000)

	if _, err := Approve(b, acct, txn, owner, 1, time.Unix(2000, 0), &fakeDispatcher{}); err == nil {
		t.Fatalf("approving a past-deadline multisig should fail as terminal")
	}
	if txn.Status != StatusExpired {
		t.Fatalf("txn should have transitioned to Expired, got %v", txn.Status)
	}
}

func TestMultisigWithdrawByOwnerOrSubmitter(t *testing.T) {
	s := newTestStore(t)
	b := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))
	submitter := address.FromPublicKeyCOSE([]byte("submitter"))
	stranger := address.FromPublicKeyCOSE([]byte("stranger"))

	acct, _ := Create(b, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 3600})
	acct, _ = AddRoles(b, acct.Address, owner, map[address.Address][]Role{submitter: {RoleCanMultisigSubmit}})
	txn, _ := Submit(b, acct, submitter, "ledger.send", nil, 1000)

	if _, err := Withdraw(b, acct, txn, stranger, 1000); err == nil {
		t.Fatalf("withdraw by unrelated address should fail")
	}
	if _, err := Withdraw(b, acct, txn, submitter, 1000); err != nil {
		t.Fatalf("withdraw by submitter should succeed: %v", err)
	}
}

// SweepExpired's Scan reads the underlying store's last-committed state
// (pkg/store.Batch.Scan does not see its own batch's staged writes), so
// these tests commit the submitting batch before sweeping, mirroring how
// consensus.App.FinalizeBlock only ever sees previously-committed blocks'
// multisig records when a new block's begin-block hook runs.

func TestSweepExpiredMarksPastDeadlineAndEmitsEvent(t *testing.T) {
	s := newTestStore(t)
	setup := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(setup, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 10})
	overdue, _ := Submit(setup, acct, owner, "ledger.send", nil, 1000)

	acct2, _ := Create(setup, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 10000})
	fresh, _ := Submit(setup, acct2, owner, "ledger.send", nil, 1000)

	if _, err := s.Commit(setup, 1); err != nil {
		t.Fatalf("Commit setup: %v", err)
	}

	events, err := eventlog.NewLog(s)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	cfg := Config{ModuleIdentity: moduleIdentity, Migrations: migration.NewRegistry(), Events: events}

	sweep := s.NewBatch()
	expired, err := SweepExpired(sweep, cfg, dispatcher.BlockContext{Height: 2, Time: time.Unix(2000, 0)})
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if len(expired) != 1 || expired[0] != overdue.ID {
		t.Fatalf("expected only the overdue txn to expire, got %v", expired)
	}

	reloaded, err := LoadMultisig(sweep, overdue.ID)
	if err != nil {
		t.Fatalf("LoadMultisig: %v", err)
	}
	if reloaded.Status != StatusExpired {
		t.Fatalf("expected overdue txn to be Expired, got %v", reloaded.Status)
	}

	stillFresh, err := LoadMultisig(sweep, fresh.ID)
	if err != nil {
		t.Fatalf("LoadMultisig: %v", err)
	}
	if stillFresh.Status != StatusPending {
		t.Fatalf("fresh txn should remain Pending, got %v", stillFresh.Status)
	}

	if _, err := s.Commit(sweep, 2); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	results, err := s.Scan(store.EventsByKindPrefix("multisig_expired"), store.Ascending, 0)
	if err != nil {
		t.Fatalf("Scan events: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one multisig_expired event, got %d", len(results))
	}
}

func TestSweepExpiredAgainIsNoop(t *testing.T) {
	s := newTestStore(t)
	setup := s.NewBatch()
	moduleIdentity := address.FromPublicKeyCOSE([]byte("module"))
	owner := address.FromPublicKeyCOSE([]byte("owner"))

	acct, _ := Create(setup, moduleIdentity, owner, &MultisigFeature{Threshold: 2, ExpireAfterSeconds: 10})
	txn, _ := Submit(setup, acct, owner, "ledger.send", nil, 1000)
	if _, err := s.Commit(setup, 1); err != nil {
		t.Fatalf("Commit setup: %v", err)
	}

	cfg := Config{ModuleIdentity: moduleIdentity, Migrations: migration.NewRegistry()}

	firstSweep := s.NewBatch()
	if _, err := SweepExpired(firstSweep, cfg, dispatcher.BlockContext{Height: 2, Time: time.Unix(2000, 0)}); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if _, err := s.Commit(firstSweep, 2); err != nil {
		t.Fatalf("Commit first sweep: %v", err)
	}

	secondSweep := s.NewBatch()
	expiredAgain, err := SweepExpired(secondSweep, cfg, dispatcher.BlockContext{Height: 3, Time: time.Unix(3000, 0)})
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(expiredAgain) != 0 {
		t.Fatalf("re-sweeping an already-expired txn should find nothing new, got %v", expiredAgain)
	}

	reloaded, err := LoadMultisig(secondSweep, txn.ID)
	if err != nil {
		t.Fatalf("LoadMultisig: %v", err)
	}
	if reloaded.Status != StatusExpired {
		t.Fatalf("expected txn to remain Expired, got %v", reloaded.Status)
	}
}

type fakeDispatcher struct {
	called    bool
	code      int32
	result    []byte
	failErr   error
	gotHeight uint64
	gotTime   time.Time
}

func (f *fakeDispatcher) DispatchAsAccount(batch *store.Batch, account address.Address, method string, payload []byte, height uint64, t time.Time) (int32, []byte, error) {
	f.called = true
	f.gotHeight = height
	f.gotTime = t
	if f.failErr != nil {
		return 0, nil, f.failErr
	}
	return f.code, f.result, nil
}

var errGeneric = &testError{"inner transaction failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
