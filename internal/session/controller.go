package session

import (
	"context"
	"errors"
	"sync"
)

// ControllerHooks connect the controller to the session's stores. Hooks run
// without the controller lock held.
type ControllerHooks struct {
	// Snapshot is called once per attempt, right after in_progress -> submitting.
	Snapshot func(trigger Trigger) Snapshot
	// Reverted is called after a failed attempt returns the state to in_progress.
	Reverted func(trigger Trigger, err error)
	// Completed is called once, after the transition to submitted.
	Completed func(trigger Trigger, ack Ack)
}

// Controller is the submission state machine. At most one persistence call
// is in flight at a time; submitted is terminal.
type Controller struct {
	mu        sync.Mutex
	state     Status
	ack       *Ack
	trigger   Trigger
	sessionID string
	persister Persister
	hooks     ControllerHooks
}

// NewController creates a controller in the in_progress state.
func NewController(sessionID string, persister Persister, hooks ControllerHooks) *Controller {
	return &Controller{
		state:     StatusInProgress,
		sessionID: sessionID,
		persister: persister,
		hooks:     hooks,
	}
}

// State returns the current state.
func (c *Controller) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ack returns the acknowledgement once submitted.
func (c *Controller) Ack() (Ack, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ack == nil {
		return Ack{}, false
	}
	return *c.ack, true
}

// Trigger returns what completed the submission, empty until submitted.
func (c *Controller) Trigger() Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

// Submit is the manual path. It returns ErrSubmitInFlight or
// ErrAlreadySubmitted without calling the persister when the state is not
// in_progress, and a *SubmitError when persistence fails.
func (c *Controller) Submit(ctx context.Context) (Ack, error) {
	return c.run(ctx, TriggerManual)
}

// AutoSubmit is the deadline path. Calls made while submitting or after
// submission are no-ops.
func (c *Controller) AutoSubmit(ctx context.Context) (Ack, error) {
	ack, err := c.run(ctx, TriggerAuto)
	if errors.Is(err, ErrSubmitInFlight) || errors.Is(err, ErrAlreadySubmitted) {
		return Ack{}, nil
	}
	return ack, err
}

func (c *Controller) run(ctx context.Context, trigger Trigger) (Ack, error) {
	c.mu.Lock()
	switch c.state {
	case StatusSubmitting:
		c.mu.Unlock()
		return Ack{}, ErrSubmitInFlight
	case StatusSubmitted:
		c.mu.Unlock()
		return Ack{}, ErrAlreadySubmitted
	}
	c.state = StatusSubmitting
	c.mu.Unlock()

	var snapshot Snapshot
	if c.hooks.Snapshot != nil {
		snapshot = c.hooks.Snapshot(trigger)
	}
	snapshot.Trigger = trigger

	ack, err := c.persister.SubmitAnswers(ctx, c.sessionID, snapshot)

	c.mu.Lock()
	if err != nil {
		c.state = StatusInProgress
		c.mu.Unlock()
		if c.hooks.Reverted != nil {
			c.hooks.Reverted(trigger, err)
		}
		return Ack{}, &SubmitError{Err: err, Retryable: true}
	}
	c.state = StatusSubmitted
	c.ack = &ack
	c.trigger = trigger
	c.mu.Unlock()

	if c.hooks.Completed != nil {
		c.hooks.Completed(trigger, ack)
	}
	return ack, nil
}
