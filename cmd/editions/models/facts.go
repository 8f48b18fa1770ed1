package models

import "time"

// Financial states reported by the commerce platform for a parent order
const (
	FinancialPaid       = "paid"
	FinancialAuthorized = "authorized"
	FinancialPending    = "pending"
	FinancialRefunded   = "refunded"
	FinancialVoided     = "voided"
)

// Fulfillment states reported for a parent order
const (
	FulfillmentFulfilled = "fulfilled"
	FulfillmentPartial   = "partial"
)

// UnitFacts is the latest fact document the order-sync layer reported
// for a unit. The upstream platform is eventually consistent: documents
// arrive partially and get revised, so nothing here is authoritative
// until the classifier has looked at it. Stored as JSONB.
type UnitFacts struct {
	// Parent order financial state ("paid", "pending", ...). Empty when
	// the sync layer has not seen a payment event yet.
	FinancialState string `json:"financial_state,omitempty"`

	// Parent order fulfillment state ("fulfilled", "partial", ...)
	FulfillmentState string `json:"fulfillment_state,omitempty"`

	// Set when the parent order was cancelled/voided
	OrderCancelledAt *time.Time `json:"order_cancelled_at,omitempty"`

	// Unit appears in a refund record
	Refunded bool `json:"refunded,omitempty"`

	// Manual removal marker set by an administrator
	Removed bool `json:"removed,omitempty"`
}
