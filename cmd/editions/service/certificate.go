package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/arthaus/editions/cmd/editions/models"
	"github.com/arthaus/editions/common/logger"
	"github.com/arthaus/editions/common/telemetry"
)

// CertificateStore is the persistence surface the issuer needs
type CertificateStore interface {
	SetCertificate(ctx context.Context, unitID, certificateID, certificateURL string) (bool, error)
}

// CertificateService idempotently ensures every active unit carries a
// certificate. Tokens never depend on rank, so a certificate survives
// arbitrary resequencing of its unit.
type CertificateService struct {
	units   CertificateStore
	baseURL string
	log     *logger.Logger
	metrics *telemetry.Telemetry
}

// NewCertificateService creates a new certificate service. baseURL is
// injected configuration; the service never reads the environment.
func NewCertificateService(units CertificateStore, baseURL string, log *logger.Logger, metrics *telemetry.Telemetry) *CertificateService {
	return &CertificateService{
		units:   units,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		metrics: metrics,
	}
}

// Ensure issues a certificate for the unit if it has none. Already
// issued: no-op, returns false. Updates the unit in place on success.
func (s *CertificateService) Ensure(ctx context.Context, unit *models.Unit) (bool, error) {
	if unit.CertificateID != nil {
		return false, nil
	}

	token, err := newCertificateToken()
	if err != nil {
		return false, fmt.Errorf("failed to generate certificate token: %w", err)
	}

	certURL := fmt.Sprintf("%s/certificates/%s/%s", s.baseURL, url.PathEscape(unit.UnitID), token)

	wrote, err := s.units.SetCertificate(ctx, unit.UnitID, token, certURL)
	if err != nil {
		return false, fmt.Errorf("failed to persist certificate: %w", err)
	}
	if !wrote {
		// A concurrent pass won the write-once race; its certificate
		// stands and ours is discarded.
		s.log.Debug("certificate already issued", "unit_id", unit.UnitID)
		return false, nil
	}

	unit.CertificateID = &token
	unit.CertificateURL = &certURL

	if s.metrics != nil {
		s.metrics.CertificatesIssuedTotal.Inc()
	}

	s.log.Info("issued certificate", "unit_id", unit.UnitID, "edition_id", unit.EditionID)
	return true, nil
}

// newCertificateToken builds an opaque, non-guessable token: a UUIDv4
// plus 16 extra random bytes, hex-encoded.
func newCertificateToken() (string, error) {
	extra := make([]byte, 16)
	if _, err := rand.Read(extra); err != nil {
		return "", err
	}

	id := uuid.New()
	return hex.EncodeToString(id[:]) + hex.EncodeToString(extra), nil
}
