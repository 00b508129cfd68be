package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/coinjar/internal/ledger"
	"github.com/dukerupert/coinjar/internal/model"
	"github.com/dukerupert/coinjar/internal/websocket"
)

// Broadcaster receives the events a trigger produces.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Result is what one Fire observed and did.
type Result struct {
	RolledOver bool                     `json:"rolled_over"`
	Settled    []model.SettlementResult `json:"settled"`
}

// Trigger runs the month rollover check followed by the auto-settlement
// scheduler. It fires on a ticker once started and on demand from the home
// view; fires never overlap.
type Trigger struct {
	fire      sync.Mutex
	rollover  *ledger.RolloverTracker
	scheduler *ledger.Scheduler
	notify    Broadcaster
	clock     func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a trigger. clock supplies "now" in the household's timezone.
func New(rollover *ledger.RolloverTracker, scheduler *ledger.Scheduler, notify Broadcaster, clock func() time.Time, interval time.Duration, logger *slog.Logger) *Trigger {
	return &Trigger{
		rollover:  rollover,
		scheduler: scheduler,
		notify:    notify,
		clock:     clock,
		interval:  interval,
		logger:    logger,
	}
}

// Fire checks for a month rollover and runs the scheduler at the current
// time. A rollover failure is logged and does not block settlement.
func (t *Trigger) Fire(ctx context.Context) (Result, error) {
	t.fire.Lock()
	defer t.fire.Unlock()

	now := t.clock()
	var res Result

	rolled, err := t.rollover.Observe(ctx, now)
	if err != nil {
		t.logger.Error("month rollover check", "error", err)
	}
	if rolled {
		res.RolledOver = true
		t.broadcast(websocket.RolloverMessage(now))
	}

	settled, err := t.scheduler.Run(ctx, now)
	if len(settled) > 0 {
		res.Settled = settled
		t.broadcast(websocket.AutoSettlementMessage(settled))
	}
	if err != nil {
		return res, fmt.Errorf("auto settlement: %w", err)
	}
	return res, nil
}

func (t *Trigger) broadcast(msg websocket.Message) {
	if t.notify != nil {
		t.notify.Broadcast(msg)
	}
}

// Start fires once immediately and then every interval until Stop or ctx
// ends.
func (t *Trigger) Start(ctx context.Context) {
	t.mu.Lock()
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	interval := t.interval
	t.mu.Unlock()

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := t.Fire(ctx); err != nil && ctx.Err() == nil {
				t.logger.Error("trigger fire", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight fire to finish.
func (t *Trigger) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
