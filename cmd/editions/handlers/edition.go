package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/repository"
	"github.com/arthaus/editions/cmd/editions/service"
	"github.com/arthaus/editions/common/logger"
)

// EditionHandler exposes the admin trigger surface: manual resequence,
// the global sweep, and the numbering view.
type EditionHandler struct {
	units      *repository.UnitRepository
	reconciler *service.Reconciler
	log        *logger.Logger
}

// NewEditionHandler creates a new edition handler
func NewEditionHandler(units *repository.UnitRepository, reconciler *service.Reconciler, log *logger.Logger) *EditionHandler {
	return &EditionHandler{
		units:      units,
		reconciler: reconciler,
		log:        log,
	}
}

// Reconcile manually resequences one edition
// POST /api/v1/editions/:id/reconcile
func (h *EditionHandler) Reconcile(c echo.Context) error {
	editionID := c.Param("id")

	result, err := h.reconciler.Reconcile(c.Request().Context(), editionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

type sweepRequest struct {
	// Optional CEL predicate over (edition_id, edition_size, archived,
	// active_count); empty sweeps every edition
	Filter string `json:"filter"`
}

// ReconcileAll runs the global sweep
// POST /api/v1/editions/reconcile-all
func (h *EditionHandler) ReconcileAll(c echo.Context) error {
	var req sweepRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	outcomes, err := h.reconciler.ReconcileAll(c.Request().Context(), req.Filter)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"editions": outcomes,
	})
}

// ListUnits returns the current numbering of an edition
// GET /api/v1/editions/:id/units
func (h *EditionHandler) ListUnits(c echo.Context) error {
	editionID := c.Param("id")

	units, err := h.units.ListByEdition(c.Request().Context(), editionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"edition_id": editionID,
		"units":      units,
	})
}
