package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/lock"
	"github.com/arthaus/editions/common/logger"
	"github.com/arthaus/editions/common/telemetry"
)

// UnitStore is the persistence surface the reconciler needs
type UnitStore interface {
	ListByEdition(ctx context.Context, editionID string) ([]*models.Unit, error)
	ApplyMembership(ctx context.Context, editionID string, changes []models.MembershipChange) error
}

// EditionStore reads edition configuration
type EditionStore interface {
	GetByID(ctx context.Context, editionID string) (*models.Edition, error)
	ListAll(ctx context.Context) ([]*models.Edition, error)
}

// Locker serializes reconciliations of one edition
type Locker interface {
	Acquire(ctx context.Context, editionID string) (string, error)
	Release(ctx context.Context, editionID, token string) error
}

// ReconcileResult summarizes one edition's reconciliation
type ReconcileResult struct {
	EditionID           string `json:"edition_id"`
	ActiveUnits         int    `json:"active_units"`
	Changes             int    `json:"changes"`
	CertificatesIssued  int    `json:"certificates_issued"`
	CertificateFailures int    `json:"certificate_failures"`
}

// EditionOutcome is one edition's result within a batch sweep
type EditionOutcome struct {
	EditionID string           `json:"edition_id"`
	Result    *ReconcileResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Reconciler is the single entry point every trigger goes through:
// webhook sync, manual admin resequence, and the scheduled sweep are
// thin adapters over Reconcile.
type Reconciler struct {
	units    UnitStore
	editions EditionStore
	certs    *CertificateService
	locker   Locker
	log      *logger.Logger
	metrics  *telemetry.Telemetry
}

// NewReconciler creates a new reconciler
func NewReconciler(units UnitStore, editions EditionStore, certs *CertificateService, locker Locker, log *logger.Logger, metrics *telemetry.Telemetry) *Reconciler {
	return &Reconciler{
		units:    units,
		editions: editions,
		certs:    certs,
		locker:   locker,
		log:      log,
		metrics:  metrics,
	}
}

// Reconcile re-derives classification, ranks, and certificates for one
// edition. Serialized per edition: a concurrent caller gets
// ErrEditionBusy after the lock retry budget and should retry later.
// Re-entrant: with unchanged facts the second call writes zero rows and
// issues zero certificates.
func (r *Reconciler) Reconcile(ctx context.Context, editionID string) (*ReconcileResult, error) {
	start := time.Now()
	log := r.log.WithEditionID(editionID)

	edition, err := r.editions.GetByID(ctx, editionID)
	if err != nil {
		r.recordOutcome("not_found", start)
		return nil, err
	}

	token, err := r.locker.Acquire(ctx, editionID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			r.recordOutcome("busy", start)
			return nil, models.ErrEditionBusy
		}
		r.recordOutcome("error", start)
		return nil, fmt.Errorf("failed to lock edition: %w", err)
	}
	defer func() {
		if err := r.locker.Release(ctx, editionID, token); err != nil {
			log.Warn("failed to release edition lock", "error", err)
		}
	}()

	units, err := r.units.ListByEdition(ctx, editionID)
	if err != nil {
		r.recordOutcome("error", start)
		return nil, err
	}

	// 1. Re-classify every unit from current facts
	verdicts := make(map[string]Verdict, len(units))
	activeCount := 0
	for _, u := range units {
		v := Classify(u.Facts)
		verdicts[u.UnitID] = v
		if v.Status == models.StatusActive {
			activeCount++
		}
	}

	// 2. Recompute the dense numbering and persist the delta atomically
	changes := ComputeRanks(units, verdicts, edition.EditionSize)
	if len(changes) > 0 {
		if err := r.units.ApplyMembership(ctx, editionID, changes); err != nil {
			r.recordOutcome("error", start)
			return nil, fmt.Errorf("failed to apply membership: %w", err)
		}
		if r.metrics != nil {
			r.metrics.RankChangesTotal.Add(float64(len(changes)))
		}
	}

	if edition.EditionSize != nil && activeCount > *edition.EditionSize {
		// Oversell is surfaced, never rejected; upstream owns the cap.
		log.Warn("edition oversold",
			"active_units", activeCount,
			"edition_size", *edition.EditionSize,
		)
		if r.metrics != nil {
			r.metrics.EditionOversellTotal.Inc()
		}
	}

	// 3. Ensure certificates for every unit that ended this pass active.
	// A failure on one unit never blocks the others; that unit is
	// retried on the next pass.
	issued, certFailures := 0, 0
	for _, u := range units {
		if verdicts[u.UnitID].Status != models.StatusActive {
			continue
		}
		ok, err := r.certs.Ensure(ctx, u)
		if err != nil {
			certFailures++
			log.Warn("certificate issuance failed, will retry next pass",
				"unit_id", u.UnitID,
				"error", err,
			)
			continue
		}
		if ok {
			issued++
		}
	}

	result := &ReconcileResult{
		EditionID:           editionID,
		ActiveUnits:         activeCount,
		Changes:             len(changes),
		CertificatesIssued:  issued,
		CertificateFailures: certFailures,
	}

	r.recordOutcome("success", start)
	log.Info("edition reconciled",
		"active_units", result.ActiveUnits,
		"changes", result.Changes,
		"certificates_issued", result.CertificatesIssued,
		"certificate_failures", result.CertificateFailures,
	)

	return result, nil
}

// ReconcileAll sweeps every edition, optionally filtered by a CEL
// predicate over (edition_id, edition_size, archived, active_count).
// Editions are processed independently; one failure never aborts the
// rest.
func (r *Reconciler) ReconcileAll(ctx context.Context, filter string) ([]EditionOutcome, error) {
	prg, err := compileEditionFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep filter: %w", err)
	}

	editions, err := r.editions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list editions: %w", err)
	}

	outcomes := make([]EditionOutcome, 0, len(editions))
	for _, edition := range editions {
		if prg != nil {
			match, err := matchEdition(prg, edition)
			if err != nil {
				r.log.Warn("sweep filter evaluation failed, skipping edition",
					"edition_id", edition.EditionID,
					"error", err,
				)
				outcomes = append(outcomes, EditionOutcome{EditionID: edition.EditionID, Error: err.Error()})
				continue
			}
			if !match {
				continue
			}
		}

		result, err := r.Reconcile(ctx, edition.EditionID)
		if err != nil {
			outcomes = append(outcomes, EditionOutcome{EditionID: edition.EditionID, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, EditionOutcome{EditionID: edition.EditionID, Result: result})
	}

	return outcomes, nil
}

func (r *Reconciler) recordOutcome(outcome string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.ReconcilesTotal.WithLabelValues(outcome).Inc()
	r.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
}
