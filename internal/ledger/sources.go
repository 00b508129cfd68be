package ledger

import (
	"context"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// ActivitySource reads completed-chore records.
type ActivitySource interface {
	FindByChild(ctx context.Context, childID int64) ([]model.ActivityRecord, error)
	// FindByChildInMonth returns records in the calendar month containing now,
	// evaluated in now's location.
	FindByChildInMonth(ctx context.Context, childID int64, now time.Time) ([]model.ActivityRecord, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]model.ActivityRecord, error)
}

// RewardTaskSource reads the current rate table.
type RewardTaskSource interface {
	FindAll(ctx context.Context) ([]model.RewardTask, error)
}

// ChildSource lists the children that can be settled.
type ChildSource interface {
	FindAll(ctx context.Context) ([]model.Child, error)
}

// ConfigSource provides the payment configuration, read on every run.
type ConfigSource interface {
	PaymentConfig(ctx context.Context) (model.PaymentConfig, error)
}

// RolloverStateStore persists the last acknowledged month boundary.
type RolloverStateStore interface {
	LastRollover(ctx context.Context) (time.Time, bool, error)
	SetLastRollover(ctx context.Context, t time.Time) error
}
