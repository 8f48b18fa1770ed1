package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/db"
)

// TransferRepository persists ownership changes and their audit trail
type TransferRepository struct {
	db    *db.DB
	units *UnitRepository
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *db.DB, units *UnitRepository) *TransferRepository {
	return &TransferRepository{db: db, units: units}
}

// Transfer overwrites the owner triple and appends the audit record in
// one transaction.
func (r *TransferRepository) Transfer(ctx context.Context, unitID string, previous, next models.Owner, reason string) (*models.OwnershipTransfer, error) {
	record := &models.OwnershipTransfer{
		TransferID:    uuid.New(),
		UnitID:        unitID,
		PreviousOwner: previous,
		NewOwner:      next,
		Reason:        reason,
		TransferredAt: time.Now().UTC(),
	}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.units.UpdateOwner(ctx, tx, unitID, next); err != nil {
			return err
		}

		query := `
			INSERT INTO ownership_transfer (
				transfer_id, unit_id,
				previous_owner_name, previous_owner_email, previous_owner_account_id,
				new_owner_name, new_owner_email, new_owner_account_id,
				reason, transferred_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			record.TransferID,
			record.UnitID,
			previous.Name, previous.Email, previous.AccountID,
			next.Name, next.Email, next.AccountID,
			record.Reason,
			record.TransferredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append transfer audit record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ListByUnit retrieves a unit's transfer history, newest first
func (r *TransferRepository) ListByUnit(ctx context.Context, unitID string) ([]*models.OwnershipTransfer, error) {
	query := `
		SELECT transfer_id, unit_id,
		       previous_owner_name, previous_owner_email, previous_owner_account_id,
		       new_owner_name, new_owner_email, new_owner_account_id,
		       reason, transferred_at
		FROM ownership_transfer
		WHERE unit_id = $1
		ORDER BY transferred_at DESC
	`

	rows, err := r.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.OwnershipTransfer
	for rows.Next() {
		t := &models.OwnershipTransfer{}
		if err := rows.Scan(
			&t.TransferID,
			&t.UnitID,
			&t.PreviousOwner.Name, &t.PreviousOwner.Email, &t.PreviousOwner.AccountID,
			&t.NewOwner.Name, &t.NewOwner.Email, &t.NewOwner.AccountID,
			&t.Reason,
			&t.TransferredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}
