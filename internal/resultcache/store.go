package resultcache

import (
	"context"
	"time"
)

// Entry is one stored result.
type Entry struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Model     string    `json:"model"`
	Template  string    `json:"template,omitempty"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Size returns the stored payload size in bytes.
func (e Entry) Size() int { return len(e.Value) }

// Store persists cache entries.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Clear(ctx context.Context) (int, error)
	Path() string
	Close() error
}
