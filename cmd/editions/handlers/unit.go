package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/cmd/editions/repository"
	"github.com/arthaus/editions/cmd/editions/service"
	"github.com/arthaus/editions/common/logger"
)

// UnitHandler handles per-unit operations: ownership transfer and
// administrative fact corrections.
type UnitHandler struct {
	units      *repository.UnitRepository
	transfers  *service.TransferService
	reconciler *service.Reconciler
	log        *logger.Logger
}

// NewUnitHandler creates a new unit handler
func NewUnitHandler(units *repository.UnitRepository, transfers *service.TransferService, reconciler *service.Reconciler, log *logger.Logger) *UnitHandler {
	return &UnitHandler{
		units:      units,
		transfers:  transfers,
		reconciler: reconciler,
		log:        log,
	}
}

type transferRequest struct {
	Owner struct {
		Name      *string `json:"name" validate:"omitempty,min=1"`
		Email     *string `json:"email" validate:"omitempty,email"`
		AccountID *string `json:"account_id" validate:"omitempty,min=1"`
	} `json:"owner" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3"`
}

// Transfer changes custodianship of one unit
// POST /api/v1/units/:id/transfer
func (h *UnitHandler) Transfer(c echo.Context) error {
	unitID := c.Param("id")

	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.transfers.Transfer(c.Request().Context(), unitID, models.Owner{
		Name:      req.Owner.Name,
		Email:     req.Owner.Email,
		AccountID: req.Owner.AccountID,
	}, req.Reason)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// History returns the transfer audit trail of one unit
// GET /api/v1/units/:id/transfers
func (h *UnitHandler) History(c echo.Context) error {
	unitID := c.Param("id")

	transfers, err := h.transfers.History(c.Request().Context(), unitID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"unit_id":   unitID,
		"transfers": transfers,
	})
}

// PatchFacts applies an administrative correction to a unit's fact
// document as an RFC 7386 merge patch, then reconciles its edition.
// PATCH /api/v1/units/:id/facts
func (h *UnitHandler) PatchFacts(c echo.Context) error {
	unitID := c.Param("id")

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil || len(patch) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty patch body"})
	}

	ctx := c.Request().Context()

	unit, err := h.units.GetByID(ctx, unitID)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.units.MergeFacts(ctx, unitID, patch); err != nil {
		return errorResponse(c, err)
	}

	result, err := h.reconciler.Reconcile(ctx, unit.EditionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
