package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/coinjar/internal/model"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(&c.ID, &c.Name, &c.Color, &c.AvatarEmoji, &c.CoinRate, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const childCols = `id, name, color, avatar_emoji, coin_rate, sort_order, created_at, updated_at`

func (s *ChildStore) Create(ctx context.Context, name, color, avatarEmoji string, coinRate int) (*model.Child, error) {
	var maxOrder int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), -1) FROM children").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO children (name, color, avatar_emoji, coin_rate, sort_order) VALUES (?, ?, ?, ?, ?)",
		name, color, avatarEmoji, coinRate, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// FindAll returns every child in display order.
func (s *ChildStore) FindAll(ctx context.Context) ([]model.Child, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+childCols+" FROM children ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) GetByID(ctx context.Context, id int64) (*model.Child, error) {
	c, err := scanChild(s.db.QueryRowContext(ctx, "SELECT "+childCols+" FROM children WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) Update(ctx context.Context, id int64, name, color, avatarEmoji string, coinRate int) (*model.Child, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE children SET name = ?, color = ?, avatar_emoji = ?, coin_rate = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, color, avatarEmoji, coinRate, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChildStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM children WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

func (s *ChildStore) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM children WHERE name = ? AND id != ?",
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
