// Package runlock keeps two cycles of the same kind (sync, generate) from
// running at once, either inside one process or across hosts sharing Redis.
package runlock

import (
	"context"
	"creatorpulse/internal/config"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Names of the cycles guarded by a Locker.
const (
	Sync     = "sync"
	Generate = "generate"
)

// DefaultTTL bounds how long a crashed holder can block a distributed lock.
const DefaultTTL = 15 * time.Minute

// ErrLocked is returned when another run of the same cycle holds the lock.
var ErrLocked = errors.New("run already in progress")

// Release gives the lock back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker acquires a named lock without waiting.
type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an in-process locker.
func NewLocal() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

func (l *LocalLocker) Acquire(_ context.Context, name string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, fmt.Errorf("%s: %w", name, ErrLocked)
	}
	l.held[name] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// New builds the locker selected by lock.backend.
func New(cfg config.Lock) (Locker, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(), nil
	case "redis":
		return NewRedis(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      config.Duration(cfg.TTL, DefaultTTL),
		})
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", cfg.Backend)
	}
}
