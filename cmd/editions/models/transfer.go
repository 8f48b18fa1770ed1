package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnershipTransfer is one audit record of a custodianship change.
// Maps to: ownership_transfer table (append-only)
type OwnershipTransfer struct {
	TransferID uuid.UUID `db:"transfer_id" json:"transfer_id"`

	UnitID string `db:"unit_id" json:"unit_id"`

	PreviousOwner Owner `db:"-" json:"previous_owner"`
	NewOwner      Owner `db:"-" json:"new_owner"`

	Reason string `db:"reason" json:"reason"`

	TransferredAt time.Time `db:"transferred_at" json:"transferred_at"`
}
