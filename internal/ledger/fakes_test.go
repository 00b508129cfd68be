package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/coinjar/internal/blob"
	"github.com/dukerupert/coinjar/internal/model"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeActivities is an in-memory ActivitySource.
type fakeActivities struct {
	records []model.ActivityRecord
	failFor map[int64]bool
}

func (f *fakeActivities) FindByChild(_ context.Context, childID int64) ([]model.ActivityRecord, error) {
	if f.failFor[childID] {
		return nil, errors.New("activity store unavailable")
	}
	var out []model.ActivityRecord
	for _, r := range f.records {
		if r.ChildID == childID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeActivities) FindByChildInMonth(ctx context.Context, childID int64, now time.Time) ([]model.ActivityRecord, error) {
	all, err := f.FindByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	start, end := MonthBounds(now)
	var out []model.ActivityRecord
	for _, r := range all {
		if !r.CompletedAt.Before(start) && r.CompletedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeActivities) FindByDateRange(_ context.Context, start, end time.Time) ([]model.ActivityRecord, error) {
	var out []model.ActivityRecord
	for _, r := range f.records {
		if !r.CompletedAt.Before(start) && r.CompletedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTasks struct {
	tasks []model.RewardTask
	err   error
}

func (f *fakeTasks) FindAll(context.Context) ([]model.RewardTask, error) {
	return f.tasks, f.err
}

type fakeChildren struct {
	children []model.Child
	err      error
}

func (f *fakeChildren) FindAll(context.Context) ([]model.Child, error) {
	return f.children, f.err
}

type fakeConfig struct {
	cfg model.PaymentConfig
	err error
}

func (f *fakeConfig) PaymentConfig(context.Context) (model.PaymentConfig, error) {
	return f.cfg, f.err
}

type fakeRolloverState struct {
	mu     sync.Mutex
	last   time.Time
	ok     bool
	getErr error
	setErr error
}

func (f *fakeRolloverState) LastRollover(context.Context) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.ok, f.getErr
}

func (f *fakeRolloverState) SetLastRollover(_ context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.last, f.ok = t, true
	return nil
}

// flakyBlob wraps a blob store and can be told to fail.
type flakyBlob struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	loadErr error
	saves   int
}

func newFlakyBlob() *flakyBlob {
	return &flakyBlob{data: make(map[string][]byte)}
}

func (f *flakyBlob) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	d, ok := f.data[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return d, nil
}

func (f *flakyBlob) Save(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *flakyBlob) setSaveErr(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func rec(id, childID, taskID int64, at time.Time) model.ActivityRecord {
	return model.ActivityRecord{ID: id, ChildID: childID, TaskID: taskID, CompletedAt: at}
}

func strPtr(s string) *string { return &s }
