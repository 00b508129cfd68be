package ledger

import (
	"slices"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// Earned sums the current rate of every record's task. Tasks missing from
// the table are worth model.DefaultRate. Historical records are priced at
// today's rates.
func Earned(records []model.ActivityRecord, tasks []model.RewardTask) int {
	return NewRateTable(tasks).earned(records)
}

func (rt RateTable) earned(records []model.ActivityRecord) int {
	total := 0
	for _, r := range records {
		total += rt.Rate(r.TaskID)
	}
	return total
}

// Streak counts consecutive calendar days with at least one record, ending
// on today. Days are taken in today's location. No record today means 0.
func Streak(records []model.ActivityRecord, today time.Time) int {
	if len(records) == 0 {
		return 0
	}
	loc := today.Location()

	seen := make(map[time.Time]struct{}, len(records))
	days := make([]time.Time, 0, len(records))
	for _, r := range records {
		d := startOfDay(r.CompletedAt.In(loc))
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })

	expect := startOfDay(today)
	streak := 0
	for _, d := range days {
		if d.After(expect) {
			// future-dated record
			continue
		}
		if !d.Equal(expect) {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}

// Compute returns the earned amount and current streak for records.
func Compute(records []model.ActivityRecord, tasks []model.RewardTask, today time.Time) model.Earnings {
	return model.Earnings{
		Amount:     Earned(records, tasks),
		StreakDays: Streak(records, today),
	}
}
