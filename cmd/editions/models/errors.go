package models

import "errors"

var (
	// ErrEditionNotFound means the edition id is unknown to the engine
	ErrEditionNotFound = errors.New("edition not found")

	// ErrUnitNotFound means the unit id is unknown to the engine
	ErrUnitNotFound = errors.New("unit not found")

	// ErrUnitNotEligible means the unit is inactive or has no rank yet,
	// so it cannot be transferred
	ErrUnitNotEligible = errors.New("unit not eligible for transfer")

	// ErrEditionBusy means another reconciliation of the same edition is
	// in flight and the lock was not acquired within the retry budget.
	// Retryable by the caller.
	ErrEditionBusy = errors.New("edition reconciliation already in progress")

	// ErrCertificateMismatch means the presented certificate token does
	// not match the unit's issued certificate
	ErrCertificateMismatch = errors.New("certificate token mismatch")
)
