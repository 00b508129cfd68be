package model

import "time"

// AutomaticNote is attached to settlements created by the scheduler.
const AutomaticNote = "Automatic settlement"

// Settlement is a payment of coins for one child and calendar month.
// Supplemental payments increase Amount in place.
type Settlement struct {
	ID      string    `json:"id"`
	ChildID int64     `json:"child_id"`
	Amount  int       `json:"amount"`
	Month   int       `json:"month"`
	Year    int       `json:"year"`
	PaidAt  time.Time `json:"paid_at"`
	Note    *string   `json:"note,omitempty"`
}

// UnpaidPeriod is a closed month whose earnings exceed what was settled.
type UnpaidPeriod struct {
	ChildID     int64 `json:"child_id"`
	Month       int   `json:"month"`
	Year        int   `json:"year"`
	Outstanding int   `json:"outstanding"`
}

// SameKey reports whether p and o refer to the same (child, month, year).
func (p UnpaidPeriod) SameKey(o UnpaidPeriod) bool {
	return p.ChildID == o.ChildID && p.Month == o.Month && p.Year == o.Year
}

// SettlementResult reports one settlement created by an automatic run.
type SettlementResult struct {
	ChildID     int64  `json:"child_id"`
	ChildName   string `json:"child_name"`
	RecordCount int    `json:"record_count"`
	Amount      int    `json:"amount"`
	StreakDays  int    `json:"streak_days"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
}
