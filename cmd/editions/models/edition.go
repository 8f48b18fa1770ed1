package models

import "time"

// Edition is the read-only configuration of a limited-run product,
// synced from the commerce platform by an external collaborator.
// Maps to: edition table
type Edition struct {
	EditionID string `db:"edition_id" json:"edition_id"`

	Title string `db:"title" json:"title"`

	// Authoritative cap. Nil means uncapped/open edition. Never enforced
	// by the sequencer; oversell is surfaced, not rejected.
	EditionSize *int `db:"edition_size" json:"edition_size,omitempty"`

	Archived bool `db:"archived" json:"archived"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Derived count, populated by list queries for sweep filtering
	ActiveUnits int `db:"active_units" json:"active_units"`
}
