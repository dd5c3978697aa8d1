// Package availability guards lazy construction of the RAG pipeline.
//
// The first caller starts initialization; concurrent callers wait for the same
// attempt. A failed attempt leaves the controller degraded until the retry
// cooldown elapses.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

const DefaultInitTimeout = 2 * time.Minute

var errClosed = errors.New("service is shutting down")

type Factory[T any] func(ctx context.Context) (T, error)

type Options[T any] struct {
	// InitTimeout bounds one initialization attempt.
	InitTimeout time.Duration
	// RetryCooldown is the time a degraded controller waits before allowing a
	// new attempt. Zero disables retries.
	RetryCooldown time.Duration
	// Release is called on the ready handle by Close.
	Release       func(T) error
	OnStateChange func(domain.ServiceState)
	Now           func() time.Time
}

type Controller[T any] struct {
	factory Factory[T]
	opts    Options[T]

	mu       sync.Mutex
	state    domain.ServiceState
	handle   T
	lastErr  error
	failedAt time.Time
	done     chan struct{}
	closed   bool
}

func NewController[T any](factory Factory[T], opts Options[T]) *Controller[T] {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller[T]{factory: factory, opts: opts, state: domain.StateUninitialized}
}

func (c *Controller[T]) State() domain.ServiceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Acquire returns the ready handle, initializing it on first use. Cancelling
// ctx stops the wait, not the initialization.
func (c *Controller[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, fmt.Errorf("%w: %w", domain.ErrServiceDegraded, errClosed)
	}
	switch c.state {
	case domain.StateReady:
		h := c.handle
		c.mu.Unlock()
		return h, nil
	case domain.StateDegraded:
		if !c.retryDueLocked() {
			err := c.degradedErrLocked()
			c.mu.Unlock()
			return zero, err
		}
		c.startLocked(ctx)
	case domain.StateUninitialized:
		c.startLocked(ctx)
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateReady {
		return c.handle, nil
	}
	return zero, c.degradedErrLocked()
}

// Close releases the ready handle. Later Acquire calls fail.
func (c *Controller[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.state != domain.StateReady || c.opts.Release == nil {
		return nil
	}
	return c.opts.Release(c.handle)
}

func (c *Controller[T]) retryDueLocked() bool {
	if c.opts.RetryCooldown <= 0 {
		return false
	}
	return !c.opts.Now().Before(c.failedAt.Add(c.opts.RetryCooldown))
}

func (c *Controller[T]) degradedErrLocked() error {
	if c.lastErr == nil {
		return domain.ErrServiceDegraded
	}
	return fmt.Errorf("%w: %w", domain.ErrServiceDegraded, c.lastErr)
}

func (c *Controller[T]) startLocked(ctx context.Context) {
	c.done = make(chan struct{})
	c.setStateLocked(domain.StateInitializing)

	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.InitTimeout)
	done := c.done
	go func() {
		defer cancel()
		handle, err := c.run(initCtx)
		c.finish(handle, err)
		close(done)
	}()
}

func (c *Controller[T]) run(ctx context.Context) (handle T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("initialization panicked: %v", r)
		}
	}()
	slog.Info("rag_init_started")
	started := c.opts.Now()
	handle, err = c.factory(ctx)
	if err == nil {
		slog.Info("rag_init_ready", "duration_ms", c.opts.Now().Sub(started).Milliseconds())
	}
	return handle, err
}

func (c *Controller[T]) finish(handle T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.failedAt = c.opts.Now()
		c.setStateLocked(domain.StateDegraded)
		slog.Error("rag_init_degraded", "error", err, "retry_cooldown", c.opts.RetryCooldown.String())
		return
	}
	if c.closed {
		// Close ran while initializing; nobody will release this handle later.
		if c.opts.Release != nil {
			if relErr := c.opts.Release(handle); relErr != nil {
				slog.Warn("rag_release_failed", "error", relErr)
			}
		}
		c.lastErr = errClosed
		c.setStateLocked(domain.StateDegraded)
		return
	}
	c.handle = handle
	c.lastErr = nil
	c.setStateLocked(domain.StateReady)
}

func (c *Controller[T]) setStateLocked(state domain.ServiceState) {
	c.state = state
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(state)
	}
}
