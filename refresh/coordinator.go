package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Invoker performs one refresh call against the credential issuer.
type Invoker interface {
	Refresh(ctx context.Context) error
}

// InvokerFunc adapts a function to [Invoker].
type InvokerFunc func(ctx context.Context) error

// Refresh calls f.
func (f InvokerFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Clearer wipes stored credentials. session.Store satisfies it.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Outcome is broadcast to every queued caller. A nil Err is success.
type Outcome struct {
	Err error
}

// Hooks observe coordinator transitions. Any field may be nil. Hooks run on
// the calling goroutine outside the coordinator lock.
type Hooks struct {
	OnStart       func()
	OnQueued      func(depth int)
	OnSettled     func(err error, waiters int, elapsed time.Duration)
	OnCleared     func()
	OnClearFailed func(err error)
}

// Config configures a [Coordinator].
type Config struct {
	// Timeout bounds each invoker and clearer call. Zero means no bound
	// beyond the invoker's own.
	Timeout time.Duration
	Hooks   Hooks
}

// Coordinator serializes refresh attempts. Create one per client.
type Coordinator struct {
	invoker Invoker
	clearer Clearer
	timeout time.Duration
	hooks   Hooks

	mu       sync.Mutex
	inFlight bool
	queue    []chan Outcome

	attempts atomic.Uint64
}

// New creates a Coordinator.
func New(invoker Invoker, clearer Clearer, cfg Config) (*Coordinator, error) {
	if invoker == nil {
		return nil, ErrNoInvoker
	}
	if clearer == nil {
		return nil, ErrNoClearer
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("refresh timeout must be >= 0")
	}
	return &Coordinator{
		invoker: invoker,
		clearer: clearer,
		timeout: cfg.Timeout,
		hooks:   cfg.Hooks,
	}, nil
}

// RequestRefresh runs a refresh, or joins the one already in flight, and
// returns its outcome. A failure is always a [*FailedError]. A queued caller
// whose ctx ends returns ctx.Err() without affecting the shared refresh.
func (c *Coordinator) RequestRefresh(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.inFlight {
		ch := make(chan Outcome, 1)
		c.queue = append(c.queue, ch)
		depth := len(c.queue)
		c.mu.Unlock()

		if c.hooks.OnQueued != nil {
			c.hooks.OnQueued(depth)
		}
		select {
		case o := <-ch:
			return o.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.inFlight = true
	c.mu.Unlock()

	c.attempts.Add(1)
	if c.hooks.OnStart != nil {
		c.hooks.OnStart()
	}

	start := time.Now()
	var outcome Outcome
	if err := c.invoke(ctx); err != nil {
		outcome.Err = asFailed(err)
	}

	waiters := c.takeWaiters()
	if outcome.Err != nil {
		// Not in flight any more: a caller started from a clear callback runs
		// its own refresh instead of queueing behind this one.
		c.clear(ctx)
	}
	for _, ch := range waiters {
		ch <- outcome
	}
	if c.hooks.OnSettled != nil {
		c.hooks.OnSettled(outcome.Err, len(waiters), time.Since(start))
	}
	return outcome.Err
}

// takeWaiters ends the in-flight refresh and hands back its queued callers in
// arrival order.
func (c *Coordinator) takeWaiters() []chan Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := c.queue
	c.queue = nil
	c.inFlight = false
	return waiters
}

func (c *Coordinator) invoke(ctx context.Context) (err error) {
	ctx, cancel := c.detached(ctx)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh invoker panic: %v", r)
		}
	}()
	return c.invoker.Refresh(ctx)
}

func (c *Coordinator) clear(ctx context.Context) {
	ctx, cancel := c.detached(ctx)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("credential clear panic: %v", r)
			}
		}()
		return c.clearer.Clear(ctx)
	}()
	if err != nil {
		if c.hooks.OnClearFailed != nil {
			c.hooks.OnClearFailed(err)
		}
		return
	}
	if c.hooks.OnCleared != nil {
		c.hooks.OnCleared()
	}
}

func (c *Coordinator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Pending returns the number of queued callers.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// InFlight reports whether a refresh is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Attempts returns the number of invoker runs started.
func (c *Coordinator) Attempts() uint64 {
	return c.attempts.Load()
}
