package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/telemetry"
)

// Loader implements read-through caching. Concurrent misses on the same key
// share one computation; failed computations are never stored.
//
// The shared computation is not bound to any single caller. It runs until it
// finishes or until every caller waiting on it has gone away.
type Loader struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the cancellation scope of one shared computation.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewLoader wraps c with read-through semantics using ttl for new entries.
func NewLoader(c Cache, ttl time.Duration) *Loader {
	return &Loader{cache: c, ttl: ttl, flights: make(map[string]*flight)}
}

// Load returns the cached value for key or computes, stores and returns it.
// The bool reports whether the value came from the cache.
// Cache backend errors are logged and treated as misses.
func (l *Loader) Load(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if l == nil || l.cache == nil {
		v, err := compute(ctx)
		return v, false, err
	}

	if v, ok, err := l.cache.Get(ctx, key); err != nil {
		telemetry.Warn("cache.get_failed", map[string]any{"error": err.Error()})
	} else if ok {
		metrics.IncCacheHit()
		return v, true, nil
	}
	metrics.IncCacheMiss()

	// A second attempt covers joining a computation whose other callers all
	// left just before this one arrived.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var v []byte
		v, err = l.share(ctx, key, compute)
		if err == nil {
			return v, false, nil
		}
		if ctx.Err() != nil || !errors.Is(err, context.Canceled) {
			break
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	return nil, false, err
}

func (l *Loader) share(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	f := l.join(ctx, key)
	ch := l.group.DoChan(key, func() (interface{}, error) {
		v, err := compute(f.ctx)
		if err != nil {
			return nil, err
		}
		if setErr := l.cache.Set(context.WithoutCancel(f.ctx), key, v, l.ttl); setErr != nil {
			telemetry.Warn("cache.set_failed", map[string]any{"error": setErr.Error()})
		}
		return v, nil
	})

	select {
	case res := <-ch:
		l.leave(key, f)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		l.leave(key, f)
		return nil, ctx.Err()
	}
}

// join registers a waiter on key's flight, starting a new flight when none is
// running. The flight keeps the caller's values but not its cancellation.
func (l *Loader) join(ctx context.Context, key string) *flight {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.flights == nil {
		l.flights = make(map[string]*flight)
	}
	f, ok := l.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		l.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter and cancels the flight once nobody is waiting.
func (l *Loader) leave(key string, f *flight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if l.flights[key] == f {
		delete(l.flights, key)
	}
}

// Invalidate removes key from the underlying cache.
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	if l == nil || l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx, key)
}
