package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/lock"
)

// fakeUnitStore is an in-memory stand-in for the unit repository. Reads
// hand out copies, the way a real query would, so only ApplyMembership
// and SetCertificate mutate stored state.
type fakeUnitStore struct {
	mu    sync.Mutex
	units map[string]*models.Unit

	applyCalls int
	certWrites int
	failCerts  map[string]error
}

func newFakeUnitStore(units ...*models.Unit) *fakeUnitStore {
	s := &fakeUnitStore{
		units:     make(map[string]*models.Unit),
		failCerts: make(map[string]error),
	}
	for _, u := range units {
		s.units[u.UnitID] = u
	}
	return s
}

func cloneUnit(u *models.Unit) *models.Unit {
	c := *u
	c.Rank = cloneInt(u.Rank)
	c.EditionSize = cloneInt(u.EditionSize)
	c.InactiveReason = cloneStr(u.InactiveReason)
	c.CertificateID = cloneStr(u.CertificateID)
	c.CertificateURL = cloneStr(u.CertificateURL)
	c.Owner = models.Owner{
		Name:      cloneStr(u.Owner.Name),
		Email:     cloneStr(u.Owner.Email),
		AccountID: cloneStr(u.Owner.AccountID),
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *fakeUnitStore) ListByEdition(ctx context.Context, editionID string) ([]*models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Unit
	for _, u := range s.units {
		if u.EditionID == editionID {
			out = append(out, cloneUnit(u))
		}
	}
	return out, nil
}

func (s *fakeUnitStore) GetByID(ctx context.Context, unitID string) (*models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[unitID]
	if !ok {
		return nil, models.ErrUnitNotFound
	}
	return cloneUnit(u), nil
}

func (s *fakeUnitStore) ApplyMembership(ctx context.Context, editionID string, changes []models.MembershipChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyCalls++
	for _, ch := range changes {
		u, ok := s.units[ch.UnitID]
		if !ok || u.EditionID != editionID {
			return fmt.Errorf("unit %s: %w", ch.UnitID, models.ErrUnitNotFound)
		}
		u.Status = ch.Status
		u.InactiveReason = cloneStr(ch.InactiveReason)
		u.Rank = cloneInt(ch.Rank)
		u.EditionSize = cloneInt(ch.EditionSize)
	}
	return nil
}

func (s *fakeUnitStore) SetCertificate(ctx context.Context, unitID, certificateID, certificateURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failCerts[unitID]; ok {
		return false, err
	}

	u, ok := s.units[unitID]
	if !ok {
		return false, models.ErrUnitNotFound
	}
	if u.CertificateID != nil {
		return false, nil
	}
	u.CertificateID = &certificateID
	u.CertificateURL = &certificateURL
	s.certWrites++
	return true, nil
}

// stored returns the persisted state of one unit
func (s *fakeUnitStore) stored(unitID string) *models.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUnit(s.units[unitID])
}

type fakeEditionStore struct {
	editions []*models.Edition
}

func (s *fakeEditionStore) GetByID(ctx context.Context, editionID string) (*models.Edition, error) {
	for _, e := range s.editions {
		if e.EditionID == editionID {
			return e, nil
		}
	}
	return nil, models.ErrEditionNotFound
}

func (s *fakeEditionStore) ListAll(ctx context.Context) ([]*models.Edition, error) {
	return s.editions, nil
}

// fakeLocker mimics the redis edition lock without retries
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, editionID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[editionID] {
		return "", lock.ErrNotAcquired
	}
	l.held[editionID] = true
	l.acquires++
	return "token", nil
}

func (l *fakeLocker) Release(ctx context.Context, editionID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held[editionID] = false
	l.releases++
	return nil
}

// fakeTransferStore records transfers without a database
type fakeTransferStore struct {
	units   *fakeUnitStore
	records []*models.OwnershipTransfer
	failErr error
}

func (s *fakeTransferStore) Transfer(ctx context.Context, unitID string, previous, next models.Owner, reason string) (*models.OwnershipTransfer, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}

	s.units.mu.Lock()
	u, ok := s.units.units[unitID]
	if !ok {
		s.units.mu.Unlock()
		return nil, models.ErrUnitNotFound
	}
	u.Owner = next
	s.units.mu.Unlock()

	record := &models.OwnershipTransfer{
		UnitID:        unitID,
		PreviousOwner: previous,
		NewOwner:      next,
		Reason:        reason,
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *fakeTransferStore) ListByUnit(ctx context.Context, unitID string) ([]*models.OwnershipTransfer, error) {
	var out []*models.OwnershipTransfer
	for _, r := range s.records {
		if r.UnitID == unitID {
			out = append(out, r)
		}
	}
	return out, nil
}
