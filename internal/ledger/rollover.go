package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RolloverTracker remembers the last month boundary it acknowledged so
// callers can tell when cached monthly aggregates went stale. It never
// touches activity or settlement data.
type RolloverTracker struct {
	state  RolloverStateStore
	logger *slog.Logger
}

func NewRolloverTracker(state RolloverStateStore, logger *slog.Logger) *RolloverTracker {
	return &RolloverTracker{state: state, logger: logger}
}

// Observe reports whether now falls in a later month than the last
// acknowledged one, and if so acknowledges now. The first call ever only
// records now and reports false. A clock moving backwards reports false and
// leaves the stored month alone.
func (t *RolloverTracker) Observe(ctx context.Context, now time.Time) (bool, error) {
	last, ok, err := t.state.LastRollover(ctx)
	if err != nil {
		return false, fmt.Errorf("read last rollover: %w", err)
	}

	if ok && !periodOf(now).after(periodOf(last.In(now.Location()))) {
		return false, nil
	}

	if err := t.state.SetLastRollover(ctx, now); err != nil {
		return false, fmt.Errorf("store rollover: %w", err)
	}
	if !ok {
		return false, nil
	}
	t.logger.Info("month rolled over", "from", last.Format("2006-01"), "to", now.Format("2006-01"))
	return true, nil
}
