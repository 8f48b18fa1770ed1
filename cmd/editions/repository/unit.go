package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/jackc/pgx/v5"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/db"
)

// UnitRepository handles database operations for edition units
type UnitRepository struct {
	db *db.DB
}

// NewUnitRepository creates a new unit repository
func NewUnitRepository(db *db.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

const unitColumns = `
	unit_id, edition_id, acquired_at, facts, status, inactive_reason,
	rank, edition_size, certificate_id, certificate_url,
	owner_name, owner_email, owner_account_id, created_at, updated_at
`

// UpsertFacts records the latest fact document for a unit, creating the
// unit row on first sight. acquired_at is immutable once set, and the
// derived columns are left for the next reconciliation to rewrite.
func (r *UnitRepository) UpsertFacts(ctx context.Context, editionID, unitID string, acquiredAt time.Time, facts models.UnitFacts) error {
	query := `
		INSERT INTO edition_unit (unit_id, edition_id, acquired_at, facts, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (unit_id) DO UPDATE
		SET facts = EXCLUDED.facts, updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		unitID,
		editionID,
		acquiredAt,
		facts,
		models.StatusInactive,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert unit facts: %w", err)
	}

	return nil
}

// GetByID retrieves a unit by its id
func (r *UnitRepository) GetByID(ctx context.Context, unitID string) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM edition_unit WHERE unit_id = $1`

	unit, err := scanUnit(r.db.QueryRow(ctx, query, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUnitNotFound
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}

	return unit, nil
}

// ListByEdition retrieves every known unit of an edition
func (r *UnitRepository) ListByEdition(ctx context.Context, editionID string) ([]*models.Unit, error) {
	query := `
		SELECT ` + unitColumns + `
		FROM edition_unit
		WHERE edition_id = $1
		ORDER BY acquired_at, unit_id
	`

	rows, err := r.db.Query(ctx, query, editionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []*models.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units: %w", err)
	}

	return units, nil
}

// ApplyMembership writes one reconciliation's status/rank delta in a
// single transaction so concurrent readers never observe a half-applied
// numbering.
func (r *UnitRepository) ApplyMembership(ctx context.Context, editionID string, changes []models.MembershipChange) error {
	if len(changes) == 0 {
		return nil
	}

	query := `
		UPDATE edition_unit
		SET status = $2, inactive_reason = $3, rank = $4, edition_size = $5, updated_at = NOW()
		WHERE unit_id = $1 AND edition_id = $6
	`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		// Clear ranks first so the unique (edition_id, rank) index never
		// sees a transient duplicate while ranks shift.
		clear := `UPDATE edition_unit SET rank = NULL WHERE edition_id = $1 AND unit_id = ANY($2)`
		ids := make([]string, len(changes))
		for i, ch := range changes {
			ids[i] = ch.UnitID
		}
		if _, err := tx.Exec(ctx, clear, editionID, ids); err != nil {
			return fmt.Errorf("failed to clear ranks: %w", err)
		}

		for _, ch := range changes {
			tag, err := tx.Exec(ctx, query,
				ch.UnitID,
				ch.Status,
				ch.InactiveReason,
				ch.Rank,
				ch.EditionSize,
				editionID,
			)
			if err != nil {
				return fmt.Errorf("failed to update unit %s: %w", ch.UnitID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("unit %s: %w", ch.UnitID, models.ErrUnitNotFound)
			}
		}
		return nil
	})
}

// SetCertificate persists a freshly issued certificate. The WHERE guard
// makes the write idempotent: once non-null, the certificate never
// changes. Returns false when another pass already issued one.
func (r *UnitRepository) SetCertificate(ctx context.Context, unitID, certificateID, certificateURL string) (bool, error) {
	query := `
		UPDATE edition_unit
		SET certificate_id = $2, certificate_url = $3, updated_at = NOW()
		WHERE unit_id = $1 AND certificate_id IS NULL
	`

	tag, err := r.db.Exec(ctx, query, unitID, certificateID, certificateURL)
	if err != nil {
		return false, fmt.Errorf("failed to set certificate: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateOwner atomically overwrites the owner triple on one unit
func (r *UnitRepository) UpdateOwner(ctx context.Context, tx pgx.Tx, unitID string, owner models.Owner) error {
	query := `
		UPDATE edition_unit
		SET owner_name = $2, owner_email = $3, owner_account_id = $4, updated_at = NOW()
		WHERE unit_id = $1
	`

	tag, err := tx.Exec(ctx, query, unitID, owner.Name, owner.Email, owner.AccountID)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUnitNotFound
	}

	return nil
}

// MergeFacts applies an RFC 7386 JSON merge patch to the stored fact
// document, inside a row lock so concurrent corrections don't clobber
// each other.
func (r *UnitRepository) MergeFacts(ctx context.Context, unitID string, patch []byte) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var current []byte
		err := tx.QueryRow(ctx,
			`SELECT facts FROM edition_unit WHERE unit_id = $1 FOR UPDATE`,
			unitID,
		).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrUnitNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load facts: %w", err)
		}

		merged, err := jsonpatch.MergePatch(current, patch)
		if err != nil {
			return fmt.Errorf("failed to apply merge patch: %w", err)
		}

		// Round-trip through the struct so unknown fields are dropped
		// and malformed documents are rejected here, not at classify time.
		var facts models.UnitFacts
		if err := json.Unmarshal(merged, &facts); err != nil {
			return fmt.Errorf("merged facts are not a valid fact document: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE edition_unit SET facts = $2, updated_at = NOW() WHERE unit_id = $1`,
			unitID, facts,
		)
		if err != nil {
			return fmt.Errorf("failed to store merged facts: %w", err)
		}

		return nil
	})
}

// GetCertificate returns the public certificate view for a unit iff the
// presented token matches the issued certificate.
func (r *UnitRepository) GetCertificate(ctx context.Context, unitID, token string) (*models.PublicCertificate, error) {
	unit, err := r.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}

	if unit.CertificateID == nil || *unit.CertificateID != token {
		return nil, models.ErrCertificateMismatch
	}

	return &models.PublicCertificate{
		UnitID:         unit.UnitID,
		EditionID:      unit.EditionID,
		Rank:           unit.Rank,
		EditionSize:    unit.EditionSize,
		CertificateID:  *unit.CertificateID,
		CertificateURL: derefOrEmpty(unit.CertificateURL),
		OwnerName:      unit.Owner.Name,
	}, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanUnit(row pgx.Row) (*models.Unit, error) {
	unit := &models.Unit{}
	err := row.Scan(
		&unit.UnitID,
		&unit.EditionID,
		&unit.AcquiredAt,
		&unit.Facts,
		&unit.Status,
		&unit.InactiveReason,
		&unit.Rank,
		&unit.EditionSize,
		&unit.CertificateID,
		&unit.CertificateURL,
		&unit.Owner.Name,
		&unit.Owner.Email,
		&unit.Owner.AccountID,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return unit, nil
}
