package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/models"
)

// errorResponse maps domain sentinels to HTTP codes. Busy editions are
// 409 so upstream retries; precondition failures are 422 and are not
// retried automatically.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrEditionNotFound),
		errors.Is(err, models.ErrUnitNotFound),
		errors.Is(err, models.ErrCertificateMismatch):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrEditionBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrUnitNotEligible):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
