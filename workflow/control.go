package workflow

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned by Controller.Gate once an execution has been
// cancelled. Further step dispatch stops; in-flight agent calls run to
// completion.
var ErrCancelled = errors.New("execution cancelled")

// Controller gates one execution's advancement. Pausing blocks the gate
// until resumed; cancelling releases it permanently with ErrCancelled.
type Controller struct {
	mu        sync.Mutex
	paused    bool
	resumeCh  chan struct{}
	cancelled chan struct{}
	once      sync.Once

	bindOnce sync.Once
	bound    chan struct{}
	execID   string
}

// NewController creates a controller in the running state.
func NewController() *Controller {
	return &Controller{
		cancelled: make(chan struct{}),
		bound:     make(chan struct{}),
	}
}

// Bind attaches the controller to its execution once the engine has created
// the execution record. Only the first call takes effect.
func (c *Controller) Bind(executionID string) {
	c.bindOnce.Do(func() {
		c.execID = executionID
		close(c.bound)
	})
}

// Bound is closed once the controller is attached to an execution.
func (c *Controller) Bound() <-chan struct{} { return c.bound }

// ExecutionID returns the bound execution id, empty before Bind.
func (c *Controller) ExecutionID() string {
	select {
	case <-c.bound:
		return c.execID
	default:
		return ""
	}
}

// Pause freezes further step dispatch. Idempotent.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.resumeCh = make(chan struct{})
}

// Resume releases a paused execution. Idempotent.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resumeCh)
}

// Cancel stops further step dispatch permanently. Idempotent.
func (c *Controller) Cancel() {
	c.once.Do(func() {
		close(c.cancelled)
	})
}

// IsCancelled reports whether Cancel has been called.
func (c *Controller) IsCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// Gate blocks while the execution is paused and fails once it is cancelled
// or the context ends. Called before every step dispatch.
func (c *Controller) Gate(ctx context.Context) error {
	for {
		select {
		case <-c.cancelled:
			return ErrCancelled
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.mu.Lock()
		if !c.paused {
			c.mu.Unlock()
			return nil
		}
		resume := c.resumeCh
		c.mu.Unlock()

		select {
		case <-resume:
		case <-c.cancelled:
			return ErrCancelled
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
