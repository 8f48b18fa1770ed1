package service

import (
	"testing"
	"time"

	"github.com/arthaus/editions/cmd/editions/models"
)

func TestClassify(t *testing.T) {
	cancelled := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		facts      models.UnitFacts
		wantStatus models.Status
		wantReason string
	}{
		{
			name:       "paid order is active",
			facts:      models.UnitFacts{FinancialState: models.FinancialPaid},
			wantStatus: models.StatusActive,
		},
		{
			name:       "authorized order is active",
			facts:      models.UnitFacts{FinancialState: models.FinancialAuthorized},
			wantStatus: models.StatusActive,
		},
		{
			name:       "pending order is active",
			facts:      models.UnitFacts{FinancialState: models.FinancialPending},
			wantStatus: models.StatusActive,
		},
		{
			name:       "fulfilled without financial state is active",
			facts:      models.UnitFacts{FulfillmentState: models.FulfillmentFulfilled},
			wantStatus: models.StatusActive,
		},
		{
			name:       "refund record beats paid state",
			facts:      models.UnitFacts{FinancialState: models.FinancialPaid, Refunded: true},
			wantStatus: models.StatusInactive,
			wantReason: ReasonRefunded,
		},
		{
			name:       "refunded financial state",
			facts:      models.UnitFacts{FinancialState: models.FinancialRefunded},
			wantStatus: models.StatusInactive,
			wantReason: ReasonRefunded,
		},
		{
			name:       "manual removal beats paid state",
			facts:      models.UnitFacts{FinancialState: models.FinancialPaid, Removed: true},
			wantStatus: models.StatusInactive,
			wantReason: ReasonRemoved,
		},
		{
			name:       "cancelled parent order",
			facts:      models.UnitFacts{FinancialState: models.FinancialPaid, OrderCancelledAt: &cancelled},
			wantStatus: models.StatusInactive,
			wantReason: ReasonOrderCancelled,
		},
		{
			name:       "voided financial state",
			facts:      models.UnitFacts{FinancialState: models.FinancialVoided},
			wantStatus: models.StatusInactive,
			wantReason: ReasonOrderCancelled,
		},
		{
			name:       "empty facts fail closed",
			facts:      models.UnitFacts{},
			wantStatus: models.StatusInactive,
			wantReason: ReasonAmbiguousFacts,
		},
		{
			name:       "partial fulfillment alone fails closed",
			facts:      models.UnitFacts{FulfillmentState: models.FulfillmentPartial},
			wantStatus: models.StatusInactive,
			wantReason: ReasonAmbiguousFacts,
		},
		{
			name:       "unknown financial state awaits payment",
			facts:      models.UnitFacts{FinancialState: "awaiting_payment_method"},
			wantStatus: models.StatusInactive,
			wantReason: ReasonAwaitingPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(tt.facts)
			if v.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", v.Status, tt.wantStatus)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", v.Reason, tt.wantReason)
			}
		})
	}
}

// Classification must be pure: the same facts always yield the same
// verdict no matter how often they are re-evaluated.
func TestClassify_Idempotent(t *testing.T) {
	facts := models.UnitFacts{FinancialState: models.FinancialPaid}

	first := Classify(facts)
	for i := 0; i < 10; i++ {
		if v := Classify(facts); v != first {
			t.Fatalf("verdict changed on re-evaluation: %+v vs %+v", v, first)
		}
	}
}
