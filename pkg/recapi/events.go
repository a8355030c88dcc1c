package recapi

import (
	"context"
	"time"
)

// CallState is a stage of the call state machine.
type CallState string

const (
	StateIdle       CallState = "idle"
	StateCoalescing CallState = "coalescing"
	StateCacheCheck CallState = "cache_check"
	StateInFlight   CallState = "in_flight"
	StateRetryWait  CallState = "retry_wait"
	StateValidate   CallState = "validate"
	StateCacheStore CallState = "cache_store"

	// Terminal states.
	StateDone      CallState = "done"
	StateFailed    CallState = "failed"
	StateCancelled CallState = "cancelled"
)

// Terminal reports whether the state settles the call.
func (s CallState) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// CallEvent describes a settled logical call.
type CallEvent struct {
	Operation string        `json:"operation"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Key       string        `json:"key"`
	State     CallState     `json:"state"`
	CacheHit  bool          `json:"cache_hit"`
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"duration_ns"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Status    int           `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventSink receives call lifecycle events. Publish must not block for long;
// a failed publish never fails the call.
type EventSink interface {
	Publish(ctx context.Context, event CallEvent) error
	Close() error
}
