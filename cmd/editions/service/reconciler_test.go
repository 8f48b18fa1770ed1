package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func paidUnit(id, edition string, acquired time.Time) *models.Unit {
	u := testUnit(id, acquired)
	u.EditionID = edition
	u.Facts = models.UnitFacts{FinancialState: models.FinancialPaid}
	return u
}

func newTestReconciler(units *fakeUnitStore, editions *fakeEditionStore, locker Locker) *Reconciler {
	log := testLogger()
	certs := NewCertificateService(units, "https://certs.example.com", log, nil)
	return NewReconciler(units, editions, certs, locker, log, nil)
}

func TestReconcile_FreshEditionAssignsRanksAndCertificates(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime.Add(1*time.Hour)),
		paidUnit("B", "ed_1", baseTime.Add(2*time.Hour)),
		paidUnit("C", "ed_1", baseTime.Add(3*time.Hour)),
	)
	size := 50
	editions := &fakeEditionStore{editions: []*models.Edition{
		{EditionID: "ed_1", EditionSize: &size},
	}}

	r := newTestReconciler(store, editions, newFakeLocker())

	result, err := r.Reconcile(context.Background(), "ed_1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.ActiveUnits)
	assert.Equal(t, 3, result.Changes)
	assert.Equal(t, 3, result.CertificatesIssued)
	assert.Equal(t, 0, result.CertificateFailures)

	for id, want := range map[string]int{"A": 1, "B": 2, "C": 3} {
		u := store.stored(id)
		require.NotNil(t, u.Rank, "unit %s should be ranked", id)
		assert.Equal(t, want, *u.Rank, "unit %s", id)
		assert.Equal(t, models.StatusActive, u.Status)
		require.NotNil(t, u.CertificateID, "unit %s should have a certificate", id)
		assert.Contains(t, *u.CertificateURL, "https://certs.example.com/certificates/"+id+"/")
		require.NotNil(t, u.EditionSize)
		assert.Equal(t, 50, *u.EditionSize)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime.Add(1*time.Hour)),
		paidUnit("B", "ed_1", baseTime.Add(2*time.Hour)),
	)
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}

	r := newTestReconciler(store, editions, newFakeLocker())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)

	firstA := store.stored("A")
	applyCallsAfterFirst := store.applyCalls

	second, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)

	// No rank churn, no new certificates, no extra writes
	assert.Equal(t, 0, second.Changes)
	assert.Equal(t, 0, second.CertificatesIssued)
	assert.Equal(t, applyCallsAfterFirst, store.applyCalls, "second pass must not write")

	secondA := store.stored("A")
	assert.Equal(t, *firstA.Rank, *secondA.Rank)
	assert.Equal(t, *firstA.CertificateID, *secondA.CertificateID)
}

// Scenario: a refund compacts the numbering but the orphaned
// certificate is retained forever.
func TestReconcile_RefundCompactsButKeepsCertificate(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime.Add(1*time.Hour)),
		paidUnit("B", "ed_1", baseTime.Add(2*time.Hour)),
		paidUnit("C", "ed_1", baseTime.Add(3*time.Hour)),
	)
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}

	r := newTestReconciler(store, editions, newFakeLocker())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)

	certB := *store.stored("B").CertificateID

	// Refund lands for B
	store.mu.Lock()
	store.units["B"].Facts.Refunded = true
	store.mu.Unlock()

	result, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ActiveUnits)

	a, b, c := store.stored("A"), store.stored("B"), store.stored("C")
	assert.Equal(t, 1, *a.Rank)
	assert.Nil(t, b.Rank, "refunded unit keeps no rank")
	assert.Equal(t, models.StatusInactive, b.Status)
	require.NotNil(t, b.InactiveReason)
	assert.Equal(t, ReasonRefunded, *b.InactiveReason)
	assert.Equal(t, 2, *c.Rank, "C compacts from 3 to 2")

	require.NotNil(t, b.CertificateID)
	assert.Equal(t, certB, *b.CertificateID, "orphaned certificate must be retained")
}

// Scenario: a delayed payment capture activates D between A and C; C's
// rank shifts but its certificate does not.
func TestReconcile_LateActivationShiftsLaterRanks(t *testing.T) {
	d := testUnit("D", baseTime.Add(90*time.Minute))
	d.EditionID = "ed_1"
	// Payment still pending upstream: no facts yet
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime.Add(1*time.Hour)),
		paidUnit("C", "ed_1", baseTime.Add(3*time.Hour)),
		d,
	)
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}

	r := newTestReconciler(store, editions, newFakeLocker())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)
	assert.Equal(t, 2, *store.stored("C").Rank)
	assert.Nil(t, store.stored("D").Rank, "unpaid unit stays unranked")

	certC := *store.stored("C").CertificateID

	// The delayed capture arrives
	store.mu.Lock()
	store.units["D"].Facts = models.UnitFacts{FinancialState: models.FinancialPaid}
	store.mu.Unlock()

	_, err = r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)

	assert.Equal(t, 1, *store.stored("A").Rank)
	assert.Equal(t, 2, *store.stored("D").Rank, "D inserts at its chronological position")
	assert.Equal(t, 3, *store.stored("C").Rank, "C shifts up")
	assert.Equal(t, certC, *store.stored("C").CertificateID, "resequencing never touches certificates")
}

// Scenario: a concurrent reconcile of the same edition is rejected as
// busy instead of interleaving.
func TestReconcile_ConcurrentCallerGetsBusy(t *testing.T) {
	store := newFakeUnitStore(paidUnit("A", "ed_1", baseTime))
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}
	locker := newFakeLocker()

	r := newTestReconciler(store, editions, locker)
	ctx := context.Background()

	// Simulate another reconciliation holding the lock
	_, err := locker.Acquire(ctx, "ed_1")
	require.NoError(t, err)

	_, err = r.Reconcile(ctx, "ed_1")
	assert.ErrorIs(t, err, models.ErrEditionBusy)

	// Once released, the retrying caller succeeds and the invariants hold
	require.NoError(t, locker.Release(ctx, "ed_1", "token"))
	result, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ActiveUnits)
	assert.Equal(t, 1, *store.stored("A").Rank)
}

func TestReconcile_EditionNotFound(t *testing.T) {
	r := newTestReconciler(newFakeUnitStore(), &fakeEditionStore{}, newFakeLocker())

	_, err := r.Reconcile(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrEditionNotFound)
}

func TestReconcile_EmptyEdition(t *testing.T) {
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}
	r := newTestReconciler(newFakeUnitStore(), editions, newFakeLocker())

	result, err := r.Reconcile(context.Background(), "ed_1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ActiveUnits)
	assert.Equal(t, 0, result.Changes)
}

// A certificate failure on one unit never blocks rank assignment or
// issuance for the rest of the batch.
func TestReconcile_CertificateFailureIsIsolated(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime.Add(1*time.Hour)),
		paidUnit("B", "ed_1", baseTime.Add(2*time.Hour)),
	)
	store.failCerts["A"] = errors.New("token store unavailable")
	editions := &fakeEditionStore{editions: []*models.Edition{{EditionID: "ed_1"}}}

	r := newTestReconciler(store, editions, newFakeLocker())
	ctx := context.Background()

	result, err := r.Reconcile(ctx, "ed_1")
	require.NoError(t, err, "issuance failure must not fail the edition")
	assert.Equal(t, 1, result.CertificatesIssued)
	assert.Equal(t, 1, result.CertificateFailures)

	assert.Equal(t, 1, *store.stored("A").Rank, "rank assigned despite cert failure")
	assert.Nil(t, store.stored("A").CertificateID)
	assert.NotNil(t, store.stored("B").CertificateID)

	// Next pass retries just the failed unit
	delete(store.failCerts, "A")
	result, err = r.Reconcile(ctx, "ed_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.CertificatesIssued)
	assert.NotNil(t, store.stored("A").CertificateID)
}

func TestReconcileAll_IsolatesFailures(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_1", baseTime),
		paidUnit("B", "ed_2", baseTime),
	)
	editions := &fakeEditionStore{editions: []*models.Edition{
		{EditionID: "ed_1"},
		{EditionID: "ed_2"},
	}}
	locker := newFakeLocker()

	r := newTestReconciler(store, editions, locker)
	ctx := context.Background()

	// ed_1 is locked by someone else; ed_2 must still be processed
	_, err := locker.Acquire(ctx, "ed_1")
	require.NoError(t, err)

	outcomes, err := r.ReconcileAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.NotEmpty(t, outcomes[0].Error, "busy edition reported, not fatal")
	assert.Empty(t, outcomes[1].Error)
	assert.Equal(t, 1, *store.stored("B").Rank)
	assert.Nil(t, store.stored("A").Rank)
}

func TestReconcileAll_CELFilter(t *testing.T) {
	store := newFakeUnitStore(
		paidUnit("A", "ed_open", baseTime),
		paidUnit("B", "ed_archived", baseTime),
	)
	editions := &fakeEditionStore{editions: []*models.Edition{
		{EditionID: "ed_open"},
		{EditionID: "ed_archived", Archived: true},
	}}

	r := newTestReconciler(store, editions, newFakeLocker())

	outcomes, err := r.ReconcileAll(context.Background(), "!archived")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ed_open", outcomes[0].EditionID)

	assert.NotNil(t, store.stored("A").Rank)
	assert.Nil(t, store.stored("B").Rank, "filtered edition untouched")
}

func TestReconcileAll_InvalidFilter(t *testing.T) {
	r := newTestReconciler(newFakeUnitStore(), &fakeEditionStore{}, newFakeLocker())

	_, err := r.ReconcileAll(context.Background(), "edition_size +")
	require.Error(t, err)

	_, err = r.ReconcileAll(context.Background(), "edition_size") // not boolean
	require.Error(t, err)
}
