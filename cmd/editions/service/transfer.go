package service

import (
	"context"
	"fmt"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/logger"
	"github.com/arthaus/editions/common/telemetry"
)

// TransferUnitReader loads the unit under transfer
type TransferUnitReader interface {
	GetByID(ctx context.Context, unitID string) (*models.Unit, error)
}

// TransferStore applies the owner overwrite plus audit append atomically
type TransferStore interface {
	Transfer(ctx context.Context, unitID string, previous, next models.Owner, reason string) (*models.OwnershipTransfer, error)
	ListByUnit(ctx context.Context, unitID string) ([]*models.OwnershipTransfer, error)
}

// TransferResult reports a transfer attempt. Changed is false for the
// identical-owner no-op case, which is reported, not errored.
type TransferResult struct {
	Unit    *models.Unit              `json:"unit"`
	Changed bool                      `json:"changed"`
	Record  *models.OwnershipTransfer `json:"record,omitempty"`
}

// TransferService mutates custodianship on a unit. It never touches
// rank or certificate identity and never invokes the sequencer.
type TransferService struct {
	units     TransferUnitReader
	transfers TransferStore
	log       *logger.Logger
	metrics   *telemetry.Telemetry
}

// NewTransferService creates a new transfer service
func NewTransferService(units TransferUnitReader, transfers TransferStore, log *logger.Logger, metrics *telemetry.Telemetry) *TransferService {
	return &TransferService{
		units:     units,
		transfers: transfers,
		log:       log,
		metrics:   metrics,
	}
}

// Transfer overwrites the owner triple on an active, ranked unit and
// appends an audit record. Inactive or unranked units are rejected with
// ErrUnitNotEligible.
func (s *TransferService) Transfer(ctx context.Context, unitID string, newOwner models.Owner, reason string) (*TransferResult, error) {
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}

	if unit.Status != models.StatusActive || unit.Rank == nil {
		return nil, fmt.Errorf("unit %s is inactive or unranked: %w", unitID, models.ErrUnitNotEligible)
	}

	if unit.Owner.Equal(newOwner) {
		s.log.Debug("transfer is a no-op, owner unchanged", "unit_id", unitID)
		return &TransferResult{Unit: unit, Changed: false}, nil
	}

	record, err := s.transfers.Transfer(ctx, unitID, unit.Owner, newOwner, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to transfer ownership: %w", err)
	}

	unit.Owner = newOwner

	if s.metrics != nil {
		s.metrics.OwnershipTransfersTotal.Inc()
	}

	s.log.Info("ownership transferred",
		"unit_id", unitID,
		"edition_id", unit.EditionID,
		"reason", reason,
	)

	return &TransferResult{Unit: unit, Changed: true, Record: record}, nil
}

// History returns a unit's transfer audit trail
func (s *TransferService) History(ctx context.Context, unitID string) ([]*models.OwnershipTransfer, error) {
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		return nil, err
	}

	return s.transfers.ListByUnit(ctx, unitID)
}
