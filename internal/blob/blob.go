// Package blob stores opaque snapshots under fixed keys.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing has been saved under a key.
var ErrNotFound = errors.New("blob not found")

// Store is a durable key/blob store. Save replaces any previous value
// for the key; a successful Save is visible to every later Load.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
