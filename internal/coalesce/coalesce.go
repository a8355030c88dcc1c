// Package coalesce debounces bursts of calls that share a key.
//
// Every call joins the pending slot for its key and pushes the slot's timer
// back by the delay. When the timer fires the slot is detached and the most
// recent producer runs once; its outcome is delivered to every caller that
// joined the slot. Calls arriving after the fire open a new slot.
//
// The producer runs detached from the cancellation of any single caller. It
// is stopped only once every caller of the slot has gone.
package coalesce

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Producer performs the coalesced work.
type Producer func(ctx context.Context) (interface{}, error)

type outcome struct {
	value interface{}
	err   error
}

type slot struct {
	key        string
	generation uint64
	timer      *time.Timer
	ctx        context.Context
	producer   Producer
	waiters    []chan outcome

	// Set when the slot fires. remaining counts callers still waiting for
	// the run; stop cancels the run's context.
	fired     bool
	remaining int
	stop      context.CancelFunc
}

// Coalescer owns the pending slots.
type Coalescer struct {
	mu          sync.Mutex
	slots       map[string]*slot
	interrupted func(ctx context.Context) error
	cancelled   func() error
	onJoin      func(key string)
}

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithJoinHook registers fn to run whenever a call joins an already
// pending slot.
func WithJoinHook(fn func(key string)) Option {
	return func(c *Coalescer) {
		c.onJoin = fn
	}
}

// New creates a Coalescer. interrupted maps a finished caller context to the
// error that caller receives; cancelled builds the error delivered to waiters
// of a slot dropped by Cancel.
func New(interrupted func(ctx context.Context) error, cancelled func() error, opts ...Option) *Coalescer {
	c := &Coalescer{
		slots:       make(map[string]*slot),
		interrupted: interrupted,
		cancelled:   cancelled,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do joins the slot for key and waits for its outcome. The producer of the
// last caller before the fire runs with that caller's context values but not
// its cancellation. A caller whose own ctx ends stops waiting and the slot
// carries on for the others; when the last caller leaves, a pending slot is
// dropped and a running producer's context is cancelled.
// A non-positive delay runs producer directly.
func (c *Coalescer) Do(ctx context.Context, key string, delay time.Duration, producer Producer) (interface{}, error) {
	if delay <= 0 {
		return producer(ctx)
	}

	done := make(chan outcome, 1)
	s := c.schedule(ctx, key, delay, producer, done)

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		c.leave(s, done)

		return nil, c.interrupted(ctx)
	}
}

func (c *Coalescer) schedule(ctx context.Context, key string, delay time.Duration, producer Producer, done chan outcome) *slot {
	c.mu.Lock()

	s, joined := c.slots[key]
	if joined {
		s.timer.Stop()
	} else {
		s = &slot{key: key}
		c.slots[key] = s
	}

	s.generation++
	s.ctx = ctx
	s.producer = producer
	s.waiters = append(s.waiters, done)

	generation := s.generation
	s.timer = time.AfterFunc(delay, func() { c.fire(s, generation) })

	c.mu.Unlock()

	if joined && c.onJoin != nil {
		c.onJoin(key)
	}

	return s
}

// leave withdraws the waiter done from s.
func (c *Coalescer) leave(s *slot, done chan outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.fired {
		s.remaining--
		if s.remaining == 0 {
			s.stop()
		}

		return
	}

	s.waiters = slices.DeleteFunc(s.waiters, func(w chan outcome) bool { return w == done })

	if len(s.waiters) == 0 && c.slots[s.key] == s {
		c.detachLocked(s)
	}
}

// fire runs the slot if generation is still current. A stale timer that
// lost the race with a reschedule or a cancel does nothing.
func (c *Coalescer) fire(s *slot, generation uint64) {
	c.mu.Lock()

	if c.slots[s.key] != s || s.generation != generation {
		c.mu.Unlock()

		return
	}

	delete(c.slots, s.key)

	ctx, stop := context.WithCancel(context.WithoutCancel(s.ctx))
	producer, waiters := s.producer, s.waiters

	s.fired = true
	s.remaining = len(waiters)
	s.stop = stop
	s.ctx = nil
	s.waiters = nil

	c.mu.Unlock()

	value, err := producer(ctx)
	stop()
	deliver(waiters, outcome{value: value, err: err})
}

// Cancel drops the pending slot for key; its callers receive the cancelled
// error. A slot that already fired is not affected.
func (c *Coalescer) Cancel(key string) bool {
	c.mu.Lock()

	s, ok := c.slots[key]
	if !ok {
		c.mu.Unlock()

		return false
	}

	waiters := c.detachLocked(s)

	c.mu.Unlock()

	c.abandon(waiters)

	return true
}

// CancelAll drops every pending slot and returns how many there were.
func (c *Coalescer) CancelAll() int {
	c.mu.Lock()

	var waiters []chan outcome

	count := 0

	for _, s := range c.slots {
		waiters = append(waiters, c.detachLocked(s)...)
		count++
	}

	c.mu.Unlock()

	c.abandon(waiters)

	return count
}

// Pending returns the number of slots waiting to fire.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.slots)
}

func (c *Coalescer) detachLocked(s *slot) []chan outcome {
	s.timer.Stop()
	s.generation++
	delete(c.slots, s.key)

	waiters := s.waiters
	s.waiters = nil

	return waiters
}

// abandon gives every waiter its own cancelled error.
func (c *Coalescer) abandon(waiters []chan outcome) {
	for _, waiter := range waiters {
		waiter <- outcome{err: c.cancelled()}
	}
}

func deliver(waiters []chan outcome, out outcome) {
	for _, waiter := range waiters {
		waiter <- out
	}
}
