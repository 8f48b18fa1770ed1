package service

import (
	"github.com/arthaus/editions/cmd/editions/models"
)

// Inactive reasons recorded alongside a classification verdict
const (
	ReasonRefunded        = "refunded"
	ReasonRemoved         = "removed"
	ReasonOrderCancelled  = "order_cancelled"
	ReasonAwaitingPayment = "awaiting_payment"
	ReasonAmbiguousFacts  = "ambiguous_facts"
)

// Verdict is one unit's classification for this reconciliation pass
type Verdict struct {
	Status models.Status
	Reason string // empty when active
}

// Classify maps the facts currently known about a unit to ACTIVE or
// INACTIVE. Pure and evaluated from scratch on every reconciliation; a
// cached prior verdict is never trusted because upstream facts arrive
// partially and get revised.
//
// Priority order, first match wins: refund, manual removal, and parent
// order cancellation always deactivate. A paid/authorized/pending order
// or a completed fulfillment activates. Anything else, including a fact
// document with no financial state at all, fails closed to INACTIVE.
func Classify(facts models.UnitFacts) Verdict {
	switch {
	case facts.Refunded || facts.FinancialState == models.FinancialRefunded:
		return Verdict{Status: models.StatusInactive, Reason: ReasonRefunded}
	case facts.Removed:
		return Verdict{Status: models.StatusInactive, Reason: ReasonRemoved}
	case facts.OrderCancelledAt != nil || facts.FinancialState == models.FinancialVoided:
		return Verdict{Status: models.StatusInactive, Reason: ReasonOrderCancelled}
	}

	switch facts.FinancialState {
	case models.FinancialPaid, models.FinancialAuthorized, models.FinancialPending:
		return Verdict{Status: models.StatusActive}
	}

	if facts.FulfillmentState == models.FulfillmentFulfilled {
		return Verdict{Status: models.StatusActive}
	}

	if facts.FinancialState == "" {
		return Verdict{Status: models.StatusInactive, Reason: ReasonAmbiguousFacts}
	}

	return Verdict{Status: models.StatusInactive, Reason: ReasonAwaitingPayment}
}
