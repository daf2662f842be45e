package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"featuregen/internal/config"
	"featuregen/internal/logging"
)

// Observer is told about every lookup outcome.
type Observer func(kind string, hit bool)

// Cache wraps a Store with TTL handling and duplicate suppression. A nil or
// disabled Cache always computes.
type Cache struct {
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	group    singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a lookup observer, typically a metrics recorder.
func WithObserver(fn Observer) Option {
	return func(c *Cache) { c.observer = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New wraps store. A nil store yields a disabled cache.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: ttl, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "resultcache")
	return c
}

// Open builds the cache described by cfg. A disabled configuration returns a
// pass-through cache.
func Open(cfg *config.Config, opts ...Option) (*Cache, error) {
	if cfg == nil || !cfg.Cache.Enabled {
		return New(nil, 0, opts...), nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	var (
		store Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "file":
		store, err = OpenFile(filepath.Join(cfg.Cache.Dir, "cache.json"))
	default:
		store, err = OpenSQLite(filepath.Join(cfg.Cache.Dir, "cache.db"))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}
	return New(store, cfg.CacheTTL(), opts...), nil
}

// Enabled reports whether results are stored.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil
}

// Path returns the backing file, or "" when disabled.
func (c *Cache) Path() string {
	if !c.Enabled() {
		return ""
	}
	return c.store.Path()
}

// Close releases the store.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Close()
}

// GetOrCompute returns the stored value for km when fresh, and otherwise runs
// compute and stores its result. Concurrent calls for the same key share one
// computation. Store failures degrade to a miss and are logged, never
// returned.
func (c *Cache) GetOrCompute(ctx context.Context, km KeyMaterial, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if !c.Enabled() {
		value, err := compute(ctx)
		return value, false, err
	}

	key := km.Key()
	if value, ok := c.lookup(ctx, key); ok {
		c.record(km.Kind, true)
		return value, true, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.lookup(ctx, key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(ctx, km, key, value)
		return value, nil
	})
	c.record(km.Kind, false)
	if err != nil {
		return nil, false, err
	}
	return result.([]byte), false, nil
}

// Remember is GetOrCompute for JSON-encodable values. A stored value that no
// longer decodes is recomputed and replaced.
func Remember[T any](ctx context.Context, c *Cache, km KeyMaterial, compute func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	encode := func(ctx context.Context) ([]byte, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	}

	data, hit, err := c.GetOrCompute(ctx, km, encode)
	if err != nil {
		return zero, false, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err == nil {
		return value, hit, nil
	} else if !hit {
		return zero, false, fmt.Errorf("decode computed value: %w", err)
	}

	c.logger.Warn("cached value no longer decodes; recomputing",
		logging.String(logging.FieldEventType, "cache_decode_failed"),
		logging.String("kind", km.Kind),
	)
	value, err = compute(ctx)
	if err != nil {
		return zero, false, err
	}
	if data, err := json.Marshal(value); err == nil {
		c.put(ctx, km, km.Key(), data)
	}
	return value, false, nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed; treating as miss",
			logging.String(logging.FieldEventType, "cache_read_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result will be recomputed"),
		)
		return nil, false
	}
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.Value, true
}

func (c *Cache) put(ctx context.Context, km KeyMaterial, key string, value []byte) {
	entry := Entry{
		Key:       key,
		Kind:      km.Kind,
		Model:     km.Model,
		Template:  km.Template,
		Value:     value,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		c.logger.Warn("cache write failed",
			logging.String(logging.FieldEventType, "cache_write_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result not reused by later runs"),
		)
	}
}

func (c *Cache) expired(entry Entry) bool {
	return c.ttl > 0 && c.now().Sub(entry.CreatedAt) >= c.ttl
}

func (c *Cache) record(kind string, hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observer != nil {
		c.observer(kind, hit)
	}
}

// List returns all entries, newest first, marking which have expired.
func (c *Cache) List(ctx context.Context) ([]Listing, error) {
	if !c.Enabled() {
		return nil, nil
	}
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	listings := make([]Listing, 0, len(entries))
	for _, entry := range entries {
		listings = append(listings, Listing{Entry: entry, Expired: c.expired(entry)})
	}
	return listings, nil
}

// Listing pairs an entry with its freshness.
type Listing struct {
	Entry
	Expired bool
}

// Prune deletes expired entries and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	if !c.Enabled() || c.ttl <= 0 {
		return 0, nil
	}
	return c.store.DeleteBefore(ctx, c.now().Add(-c.ttl))
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	return c.store.Clear(ctx)
}

// Stats summarises cache contents and this process's lookups.
type Stats struct {
	Entries int
	Expired int
	Bytes   int64
	Hits    int64
	Misses  int64
}

// Stats reports the current cache state.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	if c == nil {
		return Stats{}, nil
	}
	stats := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	listings, err := c.List(ctx)
	if err != nil {
		return stats, err
	}
	for _, l := range listings {
		stats.Entries++
		stats.Bytes += int64(l.Size())
		if l.Expired {
			stats.Expired++
		}
	}
	return stats, nil
}
