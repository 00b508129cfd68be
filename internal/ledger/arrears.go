package ledger

import (
	"slices"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// DetectArrears reconciles each closed month of records against the child's
// settlements and returns the months that were paid short, most recent
// first. The month containing now is still open and never reported; months
// without records are ignored even if a settlement exists for them.
// Bucketing uses now's location.
func DetectArrears(childID int64, records []model.ActivityRecord, settlements []model.Settlement, tasks []model.RewardTask, now time.Time) []model.UnpaidPeriod {
	loc := now.Location()
	current := periodOf(now)

	buckets := make(map[period][]model.ActivityRecord)
	for _, r := range records {
		p := periodOf(r.CompletedAt.In(loc))
		buckets[p] = append(buckets[p], r)
	}

	paid := make(map[period]int)
	for _, s := range settlements {
		if s.ChildID != childID {
			continue
		}
		paid[period{year: s.Year, month: s.Month}] += s.Amount
	}

	rates := NewRateTable(tasks)
	var unpaid []model.UnpaidPeriod
	for p, recs := range buckets {
		if p == current {
			continue
		}
		outstanding := rates.earned(recs) - paid[p]
		if outstanding <= 0 {
			continue
		}
		unpaid = append(unpaid, model.UnpaidPeriod{
			ChildID:     childID,
			Month:       p.month,
			Year:        p.year,
			Outstanding: outstanding,
		})
	}

	slices.SortFunc(unpaid, func(a, b model.UnpaidPeriod) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
	return unpaid
}

// TotalOutstanding sums the outstanding coins across periods.
func TotalOutstanding(periods []model.UnpaidPeriod) int {
	total := 0
	for _, p := range periods {
		total += p.Outstanding
	}
	return total
}
