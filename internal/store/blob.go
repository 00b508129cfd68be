package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/coinjar/internal/blob"
)

// BlobStore keeps snapshots in the blobs table. It satisfies blob.Store.
type BlobStore struct {
	db *sql.DB
}

func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

func (s *BlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %q: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}
