package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/coinjar/internal/ledger"
	"github.com/dukerupert/coinjar/internal/model"
)

// ActivityStore persists completed-chore records. Timestamps are stored in
// UTC at second precision so range queries compare correctly as text.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.ActivityRecord, error) {
	var r model.ActivityRecord
	if err := scanner.Scan(&r.ID, &r.ChildID, &r.TaskID, &r.CompletedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

const activityCols = `id, child_id, task_id, completed_at`

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *ActivityStore) Create(ctx context.Context, childID, taskID int64, completedAt time.Time) (*model.ActivityRecord, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_records (child_id, task_id, completed_at) VALUES (?, ?, ?)`,
		childID, taskID, normalize(completedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ActivityStore) GetByID(ctx context.Context, id int64) (*model.ActivityRecord, error) {
	r, err := scanActivity(s.db.QueryRowContext(ctx, `SELECT `+activityCols+` FROM activity_records WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return r, nil
}

// Update changes the task and time of a record.
func (s *ActivityStore) Update(ctx context.Context, id, taskID int64, completedAt time.Time) (*model.ActivityRecord, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE activity_records SET task_id = ?, completed_at = ? WHERE id = ?`,
		taskID, normalize(completedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ActivityStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM activity_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) query(ctx context.Context, where string, args ...any) ([]model.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityCols+` FROM activity_records WHERE `+where+` ORDER BY completed_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var records []model.ActivityRecord
	for rows.Next() {
		r, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// FindByChild returns all of a child's records, newest first.
func (s *ActivityStore) FindByChild(ctx context.Context, childID int64) ([]model.ActivityRecord, error) {
	return s.query(ctx, `child_id = ?`, childID)
}

// FindByChildInMonth returns a child's records in the calendar month
// containing now, in now's location.
func (s *ActivityStore) FindByChildInMonth(ctx context.Context, childID int64, now time.Time) ([]model.ActivityRecord, error) {
	start, end := ledger.MonthBounds(now)
	return s.query(ctx, `child_id = ? AND completed_at >= ? AND completed_at < ?`, childID, normalize(start), normalize(end))
}

// FindByDateRange returns every record in [start, end).
func (s *ActivityStore) FindByDateRange(ctx context.Context, start, end time.Time) ([]model.ActivityRecord, error) {
	return s.query(ctx, `completed_at >= ? AND completed_at < ?`, normalize(start), normalize(end))
}
