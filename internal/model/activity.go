package model

import "time"

// ActivityRecord is one completed chore.
type ActivityRecord struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Earnings is the (amount, streak) pair shown for a child.
type Earnings struct {
	Amount     int `json:"amount"`
	StreakDays int `json:"streak_days"`
}
