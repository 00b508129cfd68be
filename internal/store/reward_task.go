package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/coinjar/internal/model"
)

type RewardTaskStore struct {
	db *sql.DB
}

func NewRewardTaskStore(db *sql.DB) *RewardTaskStore {
	return &RewardTaskStore{db: db}
}

func scanRewardTask(scanner interface{ Scan(...any) error }) (*model.RewardTask, error) {
	var t model.RewardTask
	var active int

	err := scanner.Scan(&t.ID, &t.Name, &active, &t.Rate, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Active = active != 0
	return &t, nil
}

const rewardTaskCols = `id, name, active, rate, created_at`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *RewardTaskStore) Create(ctx context.Context, name string, rate int, active bool) (*model.RewardTask, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_tasks (name, rate, active) VALUES (?, ?, ?)`,
		name, rate, boolInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RewardTaskStore) GetByID(ctx context.Context, id int64) (*model.RewardTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rewardTaskCols+` FROM reward_tasks WHERE id = ?`, id)
	t, err := scanRewardTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward task: %w", err)
	}
	return t, nil
}

// FindAll returns the whole rate table, active first, then by name.
// Inactive tasks are included: they still price past records.
func (s *RewardTaskStore) FindAll(ctx context.Context) ([]model.RewardTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rewardTaskCols+` FROM reward_tasks ORDER BY active DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list reward tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.RewardTask
	for rows.Next() {
		t, err := scanRewardTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *RewardTaskStore) Update(ctx context.Context, id int64, name string, rate int, active bool) (*model.RewardTask, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reward_tasks SET name = ?, rate = ?, active = ? WHERE id = ?`,
		name, rate, boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward task: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RewardTaskStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reward_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward task: %w", err)
	}
	return nil
}
