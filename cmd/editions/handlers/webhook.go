package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/cmd/editions/repository"
	"github.com/arthaus/editions/cmd/editions/service"
	"github.com/arthaus/editions/common/logger"
)

// WebhookHandler receives order-sync deliveries from the commerce
// platform and funnels them into the single reconcile entry point.
type WebhookHandler struct {
	units      *repository.UnitRepository
	reconciler *service.Reconciler
	log        *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(units *repository.UnitRepository, reconciler *service.Reconciler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		units:      units,
		reconciler: reconciler,
		log:        log,
	}
}

type orderSyncUnit struct {
	UnitID     string           `json:"unit_id" validate:"required"`
	AcquiredAt time.Time        `json:"acquired_at" validate:"required"`
	Facts      models.UnitFacts `json:"facts"`
}

type orderSyncRequest struct {
	EditionID string          `json:"edition_id" validate:"required"`
	Units     []orderSyncUnit `json:"units" validate:"required,min=1,dive"`
}

// HandleOrderSync upserts the delivered fact documents and reconciles
// the edition. Deliveries are replayed and arrive out of order; the
// classifier re-derives everything from current facts, so replays are
// harmless.
// POST /api/v1/webhooks/orders
func (h *WebhookHandler) HandleOrderSync(c echo.Context) error {
	var req orderSyncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()

	for _, u := range req.Units {
		if err := h.units.UpsertFacts(ctx, req.EditionID, u.UnitID, u.AcquiredAt, u.Facts); err != nil {
			h.log.Error("failed to upsert unit facts", "unit_id", u.UnitID, "error", err)
			return errorResponse(c, err)
		}
	}

	result, err := h.reconciler.Reconcile(ctx, req.EditionID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
