package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// Scheduler settles the current month for every child on the configured
// payment day. It keeps no state between runs and does not poll; callers
// invoke Run whenever it is convenient, as often as they like.
type Scheduler struct {
	settlements *SettlementStore
	activities  ActivitySource
	tasks       RewardTaskSource
	children    ChildSource
	config      ConfigSource
	logger      *slog.Logger
}

// NewScheduler creates an auto-settlement scheduler.
func NewScheduler(settlements *SettlementStore, activities ActivitySource, tasks RewardTaskSource, children ChildSource, config ConfigSource, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		settlements: settlements,
		activities:  activities,
		tasks:       tasks,
		children:    children,
		config:      config,
		logger:      logger,
	}
}

// IsPaymentDay reports whether an automatic run should settle at now.
// Payment days past the end of a short month never match.
func IsPaymentDay(cfg model.PaymentConfig, now time.Time) bool {
	return cfg.AutoSettlementEnabled && now.Day() == cfg.PaymentDayOfMonth
}

// Run settles each child with unsettled activity in now's month. It returns
// the settlements it created, or nil if none. A failure for one child is
// logged and does not stop the others. If ctx is cancelled no further
// children are started and the results so far are returned with ctx.Err().
func (s *Scheduler) Run(ctx context.Context, now time.Time) ([]model.SettlementResult, error) {
	cfg, err := s.config.PaymentConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("read payment config: %w", err)
	}
	if !IsPaymentDay(cfg, now) {
		return nil, nil
	}

	children, err := s.children.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	tasks, err := s.tasks.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reward tasks: %w", err)
	}

	var results []model.SettlementResult
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.settleChild(ctx, child, tasks, now)
		if err != nil {
			s.logger.Error("auto settlement failed", "child_id", child.ID, "error", err)
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}

	if len(results) > 0 {
		s.logger.Info("auto settlement completed", "settled", len(results))
	}
	return results, nil
}

func (s *Scheduler) settleChild(ctx context.Context, child model.Child, tasks []model.RewardTask, now time.Time) (*model.SettlementResult, error) {
	month, year := int(now.Month()), now.Year()

	if _, ok := s.settlements.FindByChildAndMonth(child.ID, month, year); ok {
		return nil, nil
	}

	records, err := s.activities.FindByChildInMonth(ctx, child.ID, now)
	if err != nil {
		return nil, fmt.Errorf("find current month activity: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	earnings := Compute(records, tasks, now)
	note := model.AutomaticNote
	_, created, err := s.settlements.CreateIfAbsent(ctx, model.Settlement{
		ChildID: child.ID,
		Amount:  earnings.Amount,
		Month:   month,
		Year:    year,
		PaidAt:  now,
		Note:    &note,
	})
	if err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	if !created {
		// settled manually between the check and the write
		return nil, nil
	}

	s.logger.Debug("auto settled", "child_id", child.ID, "amount", earnings.Amount, "records", len(records))
	return &model.SettlementResult{
		ChildID:     child.ID,
		ChildName:   child.Name,
		RecordCount: len(records),
		Amount:      earnings.Amount,
		StreakDays:  earnings.StreakDays,
		Month:       month,
		Year:        year,
	}, nil
}
