package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/repository"
	"github.com/arthaus/editions/common/logger"
)

// CertificateHandler serves the public certificate record the
// presentation layer renders. Values returned here are stable forever
// once issued.
type CertificateHandler struct {
	units *repository.UnitRepository
	log   *logger.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(units *repository.UnitRepository, log *logger.Logger) *CertificateHandler {
	return &CertificateHandler{
		units: units,
		log:   log,
	}
}

// Get returns the certificate record when the token matches
// GET /api/v1/certificates/:unit_id/:token
func (h *CertificateHandler) Get(c echo.Context) error {
	unitID := c.Param("unit_id")
	token := c.Param("token")

	cert, err := h.units.GetCertificate(c.Request().Context(), unitID, token)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, cert)
}
