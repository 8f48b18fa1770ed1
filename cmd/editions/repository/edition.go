package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/cache"
	"github.com/arthaus/editions/common/db"
)

// EditionRepository reads edition configuration. The edition table is
// synced by the order-sync layer; the engine only reads it.
type EditionRepository struct {
	db       *db.DB
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewEditionRepository creates a new edition repository
func NewEditionRepository(db *db.DB, cache cache.Cache, cacheTTL time.Duration) *EditionRepository {
	return &EditionRepository{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// GetByID retrieves one edition's configuration. Results are cached
// briefly; the informational edition_size copy is allowed to lag.
func (r *EditionRepository) GetByID(ctx context.Context, editionID string) (*models.Edition, error) {
	cacheKey := "edition:" + editionID

	if r.cache != nil {
		if data, ok, _ := r.cache.Get(ctx, cacheKey); ok {
			edition := &models.Edition{}
			if err := json.Unmarshal(data, edition); err == nil {
				return edition, nil
			}
		}
	}

	query := `
		SELECT edition_id, title, edition_size, archived, updated_at
		FROM edition
		WHERE edition_id = $1
	`

	edition := &models.Edition{}
	err := r.db.QueryRow(ctx, query, editionID).Scan(
		&edition.EditionID,
		&edition.Title,
		&edition.EditionSize,
		&edition.Archived,
		&edition.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEditionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edition: %w", err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(edition); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, r.cacheTTL)
		}
	}

	return edition, nil
}

// ListAll retrieves every edition with its current active-unit count,
// for sweep filtering.
func (r *EditionRepository) ListAll(ctx context.Context) ([]*models.Edition, error) {
	query := `
		SELECT e.edition_id, e.title, e.edition_size, e.archived, e.updated_at,
		       COUNT(u.unit_id) FILTER (WHERE u.status = 'ACTIVE') AS active_units
		FROM edition e
		LEFT JOIN edition_unit u ON u.edition_id = e.edition_id
		GROUP BY e.edition_id, e.title, e.edition_size, e.archived, e.updated_at
		ORDER BY e.edition_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list editions: %w", err)
	}
	defer rows.Close()

	var editions []*models.Edition
	for rows.Next() {
		edition := &models.Edition{}
		if err := rows.Scan(
			&edition.EditionID,
			&edition.Title,
			&edition.EditionSize,
			&edition.Archived,
			&edition.UpdatedAt,
			&edition.ActiveUnits,
		); err != nil {
			return nil, fmt.Errorf("failed to scan edition: %w", err)
		}
		editions = append(editions, edition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate editions: %w", err)
	}

	return editions, nil
}
