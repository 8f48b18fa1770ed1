package service

import (
	"sort"

	"github.com/arthaus/editions/cmd/editions/models"
)

// ComputeRanks produces the dense edition numbering for one edition
// given this pass's verdicts, and returns only the rows that differ
// from what is stored. A full recompute, not a counter: a unit that
// activates "in the past" lands at its chronological position and
// shifts later units up, and a deactivated unit's slot is compacted.
//
// Active units are ordered by (acquired_at, unit_id) ascending and
// ranked 1..N; inactive units get rank NULL. With zero active units the
// result is simply every stale row being cleared.
func ComputeRanks(units []*models.Unit, verdicts map[string]Verdict, editionSize *int) []models.MembershipChange {
	active := make([]*models.Unit, 0, len(units))
	for _, u := range units {
		if verdicts[u.UnitID].Status == models.StatusActive {
			active = append(active, u)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if !active[i].AcquiredAt.Equal(active[j].AcquiredAt) {
			return active[i].AcquiredAt.Before(active[j].AcquiredAt)
		}
		// Tie-break on unit_id for determinism
		return active[i].UnitID < active[j].UnitID
	})

	desired := make(map[string]int, len(active))
	for i, u := range active {
		desired[u.UnitID] = i + 1
	}

	var changes []models.MembershipChange
	for _, u := range units {
		verdict := verdicts[u.UnitID]

		var rank *int
		var reason *string
		if verdict.Status == models.StatusActive {
			r := desired[u.UnitID]
			rank = &r
		} else if verdict.Reason != "" {
			reason = &verdict.Reason
		}

		if u.Status == verdict.Status &&
			intPtrEqual(u.Rank, rank) &&
			strPtrEqual(u.InactiveReason, reason) &&
			intPtrEqual(u.EditionSize, editionSize) {
			continue
		}

		changes = append(changes, models.MembershipChange{
			UnitID:         u.UnitID,
			Status:         verdict.Status,
			InactiveReason: reason,
			Rank:           rank,
			EditionSize:    editionSize,
		})
	}

	return changes
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
