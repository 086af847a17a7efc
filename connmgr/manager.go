// Package connmgr caches a process-scoped handle to a backing store and
// re-establishes it when a liveness check fails.
package connmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/questor/core"
)

// DefaultDialTimeout bounds connection establishment
const DefaultDialTimeout = 5 * time.Second

// DialFunc opens a new handle
type DialFunc[T any] func(ctx context.Context) (T, error)

// PingFunc checks that a cached handle is still usable
type PingFunc[T any] func(ctx context.Context, conn T) error

// CloseFunc releases a handle
type CloseFunc[T any] func(conn T) error

// Options tune a Manager
type Options struct {
	DialTimeout time.Duration
	PingTimeout time.Duration
}

// Manager lazily dials a handle and reuses it while it stays healthy.
// It is safe for concurrent use.
type Manager[T any] struct {
	dial   DialFunc[T]
	ping   PingFunc[T]
	closer CloseFunc[T]
	opts   Options

	mu     sync.Mutex
	conn   T
	gen    uint64
	ready  bool
	closed bool
}

// New creates a Manager. closer may be nil.
func New[T any](dial DialFunc[T], ping PingFunc[T], closer CloseFunc[T], opts Options) *Manager[T] {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = opts.DialTimeout
	}
	return &Manager[T]{
		dial:   dial,
		ping:   ping,
		closer: closer,
		opts:   opts,
	}
}

// Get returns the cached handle after a liveness check, dialing a new one when needed.
// Dial failures wrap core.ErrStoreUnavailable and may be retried by the caller.
// The liveness check runs without holding the lock, so concurrent callers ping in parallel.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	var zero T

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return zero, errClosed
	}
	if !m.ready {
		defer m.mu.Unlock()
		return m.redial(ctx)
	}
	conn, gen := m.conn, m.gen
	m.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, m.opts.PingTimeout)
	err := m.ping(pingCtx, conn)
	cancel()
	if err == nil {
		return conn, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return zero, errClosed
	}
	if m.ready && m.gen != gen {
		// another caller already replaced the failed handle
		return m.conn, nil
	}
	if m.ready {
		m.release()
	}
	return m.redial(ctx)
}

var errClosed = fmt.Errorf("connection manager closed: %w", core.ErrStoreUnavailable)

// redial opens a new handle; must be called with mu held
func (m *Manager[T]) redial(ctx context.Context) (T, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer cancel()

	conn, err := m.dial(dialCtx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to connect: %v: %w", err, core.ErrStoreUnavailable)
	}

	m.conn = conn
	m.ready = true
	m.gen++
	return conn, nil
}

// Close releases the cached handle. Subsequent Get calls fail.
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if !m.ready {
		return nil
	}
	conn := m.conn
	m.ready = false
	var zero T
	m.conn = zero
	if m.closer == nil {
		return nil
	}
	return m.closer(conn)
}

// release drops the cached handle; must be called with mu held
func (m *Manager[T]) release() {
	if m.closer != nil {
		_ = m.closer(m.conn)
	}
	var zero T
	m.conn = zero
	m.ready = false
}
