// Package cache keeps recently computed ledger views in memory.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"coinpath/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge() int
	Size() int
}

// MonthKey is the cache key of one calendar month; month 0 is the whole
// collection.
func MonthKey(year, month int) string {
	if month == 0 {
		return "all"
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Loader fills a cache on miss and collapses concurrent misses for the
// same key into one load.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	gen   atomic.Uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or loads it with load. hit reports
// whether the value came from the cache. Failed loads are not cached, and
// neither are loads that straddle an Invalidate.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (value T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	gen := l.gen.Load()
	v, err, _ := l.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if l.gen.Load() == gen {
			l.cache.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops every cached entry.
func (l *Loader[T]) Invalidate() {
	l.gen.Add(1)
	l.cache.Purge()
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup routine started by StartCleanup.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}
