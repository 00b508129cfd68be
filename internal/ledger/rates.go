package ledger

import "github.com/dukerupert/coinjar/internal/model"

// RateTable is a read-only view of reward tasks keyed by id.
type RateTable struct {
	tasks []model.RewardTask
	rates map[int64]int
}

// NewRateTable indexes tasks. Later duplicates of an id win.
func NewRateTable(tasks []model.RewardTask) RateTable {
	rates := make(map[int64]int, len(tasks))
	for _, t := range tasks {
		rates[t.ID] = t.Rate
	}
	return RateTable{tasks: tasks, rates: rates}
}

// Rate returns the coin value of a task, or model.DefaultRate if unknown.
func (rt RateTable) Rate(taskID int64) int {
	if r, ok := rt.rates[taskID]; ok {
		return r
	}
	return model.DefaultRate
}

// Known reports whether taskID is in the table.
func (rt RateTable) Known(taskID int64) bool {
	_, ok := rt.rates[taskID]
	return ok
}

func (rt RateTable) Active() []model.RewardTask {
	return rt.filter(true)
}

func (rt RateTable) Inactive() []model.RewardTask {
	return rt.filter(false)
}

func (rt RateTable) filter(active bool) []model.RewardTask {
	var out []model.RewardTask
	for _, t := range rt.tasks {
		if t.Active == active {
			out = append(out, t)
		}
	}
	return out
}
