package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/coinjar/internal/blob"
	"github.com/dukerupert/coinjar/internal/model"
)

// SettlementStore holds every settlement in memory and writes a full
// snapshot to a blob store on each mutation. Reads share the lock; writes
// are exclusive and hold it until the snapshot is durable, so the in-memory
// index only changes after a successful write.
type SettlementStore struct {
	mu     sync.RWMutex
	items  []model.Settlement
	blobs  blob.Store
	key    string
	logger *slog.Logger
}

// NewSettlementStore loads the snapshot stored under key. A missing or
// unreadable snapshot yields an empty store; the failure is logged.
func NewSettlementStore(ctx context.Context, blobs blob.Store, key string, logger *slog.Logger) *SettlementStore {
	s := &SettlementStore{
		blobs:  blobs,
		key:    key,
		logger: logger,
	}

	data, err := blobs.Load(ctx, key)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		logger.Info("no settlement snapshot, starting empty", "key", key)
		return s
	case err != nil:
		logger.Error("load settlement snapshot", "key", key, "error", err)
		return s
	}

	items, err := DecodeSnapshot(data)
	if err != nil {
		logger.Error("decode settlement snapshot", "key", key, "error", err)
		return s
	}
	s.items = items
	logger.Info("loaded settlements", "count", len(items))
	return s
}

// commit persists next and swaps it in. Caller holds the write lock.
func (s *SettlementStore) commit(ctx context.Context, next []model.Settlement) error {
	data, err := EncodeSnapshot(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.blobs.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.items = next
	return nil
}

func validate(st model.Settlement) error {
	if st.Amount < 0 {
		return ErrInvalidAmount
	}
	if st.Month < 1 || st.Month > 12 || st.Year < 1 {
		return ErrInvalidPeriod
	}
	return nil
}

func (s *SettlementStore) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(x model.Settlement) bool { return x.ID == id })
}

func (s *SettlementStore) indexOfKey(childID int64, month, year int) int {
	return slices.IndexFunc(s.items, func(x model.Settlement) bool {
		return x.ChildID == childID && x.Month == month && x.Year == year
	})
}

// Save upserts st by id. An empty id is replaced with a new UUID.
func (s *SettlementStore) Save(ctx context.Context, st model.Settlement) (model.Settlement, error) {
	if err := validate(st); err != nil {
		return model.Settlement{}, err
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st = clone(st)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.items)
	if i := s.indexOf(st.ID); i >= 0 {
		next[i] = st
	} else {
		next = append(next, st)
	}
	if err := s.commit(ctx, next); err != nil {
		return model.Settlement{}, err
	}
	return clone(st), nil
}

// Update is Save.
func (s *SettlementStore) Update(ctx context.Context, st model.Settlement) (model.Settlement, error) {
	return s.Save(ctx, st)
}

// Delete removes the settlement with id.
func (s *SettlementStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	return s.commit(ctx, next)
}

// CreateIfAbsent saves st unless a settlement already exists for its
// (child, month, year). It returns the stored settlement and whether it was
// created by this call.
func (s *SettlementStore) CreateIfAbsent(ctx context.Context, st model.Settlement) (model.Settlement, bool, error) {
	if err := validate(st); err != nil {
		return model.Settlement{}, false, err
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st = clone(st)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOfKey(st.ChildID, st.Month, st.Year); i >= 0 {
		return clone(s.items[i]), false, nil
	}
	next := append(slices.Clone(s.items), st)
	if err := s.commit(ctx, next); err != nil {
		return model.Settlement{}, false, err
	}
	return clone(st), true, nil
}

// AddPayment records a manual payment for a month. The first payment creates
// the settlement; later ones add to its amount and keep the original
// paid-at and note.
func (s *SettlementStore) AddPayment(ctx context.Context, childID int64, month, year, amount int, note *string, paidAt time.Time) (model.Settlement, error) {
	st := model.Settlement{
		ChildID: childID,
		Amount:  amount,
		Month:   month,
		Year:    year,
		PaidAt:  paidAt,
		Note:    note,
	}
	if err := validate(st); err != nil {
		return model.Settlement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.items)
	if i := s.indexOfKey(childID, month, year); i >= 0 {
		next[i].Amount += amount
		st = next[i]
	} else {
		st.ID = uuid.NewString()
		st = clone(st)
		next = append(next, st)
	}
	if err := s.commit(ctx, next); err != nil {
		return model.Settlement{}, err
	}
	return clone(st), nil
}

// FindAll returns every settlement in insertion order.
func (s *SettlementStore) FindAll() []model.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

func (s *SettlementStore) FindByID(id string) (model.Settlement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return clone(s.items[i]), true
	}
	return model.Settlement{}, false
}

// FindByChild returns a child's settlements, most recently paid first.
func (s *SettlementStore) FindByChild(childID int64) []model.Settlement {
	s.mu.RLock()
	var out []model.Settlement
	for _, st := range s.items {
		if st.ChildID == childID {
			out = append(out, clone(st))
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Settlement) int { return b.PaidAt.Compare(a.PaidAt) })
	return out
}

// FindByChildAndMonth returns the settlement for (child, month, year), if any.
func (s *SettlementStore) FindByChildAndMonth(childID int64, month, year int) (model.Settlement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOfKey(childID, month, year); i >= 0 {
		return clone(s.items[i]), true
	}
	return model.Settlement{}, false
}

func clone(st model.Settlement) model.Settlement {
	if st.Note != nil {
		n := *st.Note
		st.Note = &n
	}
	return st
}

func cloneAll(items []model.Settlement) []model.Settlement {
	out := make([]model.Settlement, len(items))
	for i, st := range items {
		out[i] = clone(st)
	}
	return out
}
