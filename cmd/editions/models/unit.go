package models

import (
	"time"
)

// Status classifies whether a unit currently counts toward its
// edition's numbering
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Unit represents one purchased/allocated copy of a limited edition
// Maps to: edition_unit table
type Unit struct {
	// Commerce platform's line-item id; immutable
	UnitID string `db:"unit_id" json:"unit_id"`

	// Groups units belonging to the same limited edition
	EditionID string `db:"edition_id" json:"edition_id"`

	// Primary ordering key for rank assignment; immutable once set
	AcquiredAt time.Time `db:"acquired_at" json:"acquired_at"`

	// Latest fact document from the order-sync layer (JSONB)
	Facts UnitFacts `db:"facts" json:"facts"`

	// Derived by the classifier on every reconciliation
	Status         Status  `db:"status" json:"status"`
	InactiveReason *string `db:"inactive_reason" json:"inactive_reason,omitempty"`

	// Edition number; owned exclusively by the sequencer.
	// NULL while the unit is inactive.
	Rank *int `db:"rank" json:"rank,omitempty"`

	// Informational copy of the edition cap at last reconciliation;
	// may lag the source of truth
	EditionSize *int `db:"edition_size" json:"edition_size,omitempty"`

	// Write-once, owned by the certificate issuer
	CertificateID  *string `db:"certificate_id" json:"certificate_id,omitempty"`
	CertificateURL *string `db:"certificate_url" json:"certificate_url,omitempty"`

	// Owned by ownership transfer; independent of rank and certificate
	Owner Owner `db:"-" json:"owner"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Owner is the custodianship triple on a unit
type Owner struct {
	Name      *string `db:"owner_name" json:"name,omitempty"`
	Email     *string `db:"owner_email" json:"email,omitempty"`
	AccountID *string `db:"owner_account_id" json:"account_id,omitempty"`
}

// Equal reports whether two owners are the same triple
func (o Owner) Equal(other Owner) bool {
	return strEqual(o.Name, other.Name) &&
		strEqual(o.Email, other.Email) &&
		strEqual(o.AccountID, other.AccountID)
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MembershipChange is one unit row the sequencer wants rewritten.
// Only units whose derived fields actually changed are included, so a
// reconciliation with nothing to do writes nothing.
type MembershipChange struct {
	UnitID         string
	Status         Status
	InactiveReason *string
	Rank           *int
	EditionSize    *int
}

// PublicCertificate is the view a certificate consumer reads
type PublicCertificate struct {
	UnitID         string  `json:"unit_id"`
	EditionID      string  `json:"edition_id"`
	Rank           *int    `json:"rank,omitempty"`
	EditionSize    *int    `json:"edition_size,omitempty"`
	CertificateID  string  `json:"certificate_id"`
	CertificateURL string  `json:"certificate_url"`
	OwnerName      *string `json:"owner_name,omitempty"`
}
