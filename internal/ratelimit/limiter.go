package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Record is the stored state of one fixed window for one key.
type Record struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Store persists rate limit records. Implementations must treat the ttl as a
// hint for self-expiry; the limiter applies the lazy window reset regardless.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, record Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

// Config customises a limiter instance.
type Config struct {
	// Window is the fixed window length. Defaults to one hour.
	Window time.Duration
	// MaxRequests is the number of requests allowed per window. Defaults to 5.
	MaxRequests int
	// KeyPrefix namespaces stored keys so co-hosted limiters cannot collide.
	KeyPrefix string
}

// Result is the caller-visible view of a key's window after a check or increment.
type Result struct {
	Limited    bool          `json:"limited"`
	Remaining  int           `json:"remaining"`
	ResetTime  time.Time     `json:"reset_time"`
	RetryAfter time.Duration `json:"retry_after"`
}

// lockStripes bounds the lock table; keys hash onto a fixed set of mutexes.
const lockStripes = 64

// Limiter implements fixed-window rate limiting over a pluggable store.
// Expired windows are reset lazily on the next access for that key; there is
// no background sweep. The read-reset-mutate-write sequence for a key runs
// under a striped per-key lock, so concurrent increments within one process
// never lose updates regardless of the store behind them.
type Limiter struct {
	cfg    Config
	store  Store
	logger zerolog.Logger
	locks  [lockStripes]sync.Mutex
}

// New constructs a limiter. The instance is intended to be created once at
// startup and injected wherever it is needed.
func New(cfg Config, store Store, logger zerolog.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 5
	}
	return &Limiter{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "rate_limiter").Logger(),
	}
}

// Check reports the current window state for key without consuming a request.
// A stale window is still reset and the reset persisted; a never-seen key is
// answered synthetically without writing to the store.
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	storeKey := l.prefixed(key)
	lock := l.lock(storeKey)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.load(ctx, storeKey)
	if err != nil {
		return Result{}, err
	}
	return l.view(record), nil
}

// Increment applies the lazy reset, consumes one request for key and returns
// the post-increment window state. The whole sequence holds the key's lock.
func (l *Limiter) Increment(ctx context.Context, key string) (Result, error) {
	storeKey := l.prefixed(key)
	lock := l.lock(storeKey)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.load(ctx, storeKey)
	if err != nil {
		return Result{}, err
	}

	record.Count++
	if err := l.persist(ctx, storeKey, record); err != nil {
		return Result{}, err
	}

	result := l.view(record)
	if result.Limited {
		l.logger.Debug().Str("key", key).Int("count", record.Count).Msg("rate limit reached")
	}
	return result, nil
}

// Reset clears the record for one key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Delete(ctx, l.prefixed(key))
}

// ResetAll clears every record held by the store.
func (l *Limiter) ResetAll(ctx context.Context) error {
	return l.store.Flush(ctx)
}

func (l *Limiter) prefixed(key string) string {
	if l.cfg.KeyPrefix == "" {
		return key
	}
	return l.cfg.KeyPrefix + ":" + key
}

// lock maps a store key onto its stripe. Different keys may share a stripe;
// that costs contention, never correctness.
func (l *Limiter) lock(storeKey string) *sync.Mutex {
	hasher := fnv.New32a()
	hasher.Write([]byte(storeKey))
	return &l.locks[hasher.Sum32()%lockStripes]
}

// load fetches the record for a store key, resetting it when the window has
// elapsed. The reset is a mutation and is written back immediately; an absent
// record is returned fresh without being persisted, so probes for unknown
// keys leave no trace in the store. Callers hold the key's lock.
func (l *Limiter) load(ctx context.Context, storeKey string) (Record, error) {
	record, ok, err := l.store.Get(ctx, storeKey)
	if err != nil {
		return Record{}, err
	}

	now := time.Now()
	if !ok {
		return Record{WindowStart: now}, nil
	}
	if now.Sub(record.WindowStart) > l.cfg.Window {
		record = Record{WindowStart: now}
		if err := l.persist(ctx, storeKey, record); err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

func (l *Limiter) persist(ctx context.Context, storeKey string, record Record) error {
	ttl := time.Until(record.WindowStart.Add(l.cfg.Window))
	if ttl <= 0 {
		ttl = l.cfg.Window
	}
	return l.store.Put(ctx, storeKey, record, ttl)
}

func (l *Limiter) view(record Record) Result {
	remaining := l.cfg.MaxRequests - record.Count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := record.WindowStart.Add(l.cfg.Window)
	result := Result{
		Limited:   record.Count >= l.cfg.MaxRequests,
		Remaining: remaining,
		ResetTime: resetTime,
	}
	if result.Limited {
		if wait := time.Until(resetTime); wait > 0 {
			result.RetryAfter = wait
		}
	}
	return result
}
