package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthaus/editions/cmd/editions/models"
)

func strPtr(s string) *string { return &s }

func ownedUnit(id string, rank int) *models.Unit {
	u := rankedUnit(id, baseTime.Add(time.Duration(rank)*time.Hour), rank)
	cert := "cert-" + id
	certURL := "https://certs.example.com/certificates/" + id + "/" + cert
	u.CertificateID = &cert
	u.CertificateURL = &certURL
	u.Owner = models.Owner{
		Name:  strPtr("First Collector"),
		Email: strPtr("first@example.com"),
	}
	return u
}

func newTestTransferService(store *fakeUnitStore) (*TransferService, *fakeTransferStore) {
	transfers := &fakeTransferStore{units: store}
	return NewTransferService(store, transfers, testLogger(), nil), transfers
}

// Scenario: transferring ownership leaves rank and certificate alone
// and appends exactly one audit record with the before/after owners.
func TestTransfer_ChangesOwnerOnly(t *testing.T) {
	unit := ownedUnit("C", 3)
	store := newFakeUnitStore(unit)
	svc, transfers := newTestTransferService(store)

	newOwner := models.Owner{
		Name:  strPtr("Second Collector"),
		Email: strPtr("second@example.com"),
	}

	result, err := svc.Transfer(context.Background(), "C", newOwner, "resold at auction")
	require.NoError(t, err)
	assert.True(t, result.Changed)

	stored := store.stored("C")
	assert.Equal(t, 3, *stored.Rank, "rank untouched")
	assert.Equal(t, "cert-C", *stored.CertificateID, "certificate untouched")
	assert.Equal(t, "Second Collector", *stored.Owner.Name)

	require.Len(t, transfers.records, 1)
	rec := transfers.records[0]
	assert.Equal(t, "C", rec.UnitID)
	assert.Equal(t, "First Collector", *rec.PreviousOwner.Name)
	assert.Equal(t, "Second Collector", *rec.NewOwner.Name)
	assert.Equal(t, "resold at auction", rec.Reason)
}

func TestTransfer_IdenticalOwnerIsNoOp(t *testing.T) {
	unit := ownedUnit("C", 1)
	store := newFakeUnitStore(unit)
	svc, transfers := newTestTransferService(store)

	sameOwner := models.Owner{
		Name:  strPtr("First Collector"),
		Email: strPtr("first@example.com"),
	}

	result, err := svc.Transfer(context.Background(), "C", sameOwner, "dup request")
	require.NoError(t, err)
	assert.False(t, result.Changed, "identical owner is a reported no-op")
	assert.Empty(t, transfers.records, "no audit noise on no-op")
}

func TestTransfer_RejectsInactiveUnit(t *testing.T) {
	unit := testUnit("B", baseTime)
	unit.Status = models.StatusInactive
	store := newFakeUnitStore(unit)
	svc, _ := newTestTransferService(store)

	_, err := svc.Transfer(context.Background(), "B", models.Owner{Name: strPtr("X")}, "r")
	assert.ErrorIs(t, err, models.ErrUnitNotEligible)
}

func TestTransfer_RejectsUnrankedUnit(t *testing.T) {
	unit := testUnit("B", baseTime)
	unit.Status = models.StatusActive // active but the sequencer hasn't run yet
	store := newFakeUnitStore(unit)
	svc, _ := newTestTransferService(store)

	_, err := svc.Transfer(context.Background(), "B", models.Owner{Name: strPtr("X")}, "r")
	assert.ErrorIs(t, err, models.ErrUnitNotEligible)
}

func TestTransfer_UnknownUnit(t *testing.T) {
	svc, _ := newTestTransferService(newFakeUnitStore())

	_, err := svc.Transfer(context.Background(), "nope", models.Owner{Name: strPtr("X")}, "r")
	assert.ErrorIs(t, err, models.ErrUnitNotFound)
}

func TestOwnerEqual(t *testing.T) {
	a := models.Owner{Name: strPtr("N"), Email: strPtr("e@x.com")}
	b := models.Owner{Name: strPtr("N"), Email: strPtr("e@x.com")}
	assert.True(t, a.Equal(b))

	b.AccountID = strPtr("acct_1")
	assert.False(t, a.Equal(b))

	assert.True(t, models.Owner{}.Equal(models.Owner{}))
	assert.False(t, models.Owner{}.Equal(a))
}
