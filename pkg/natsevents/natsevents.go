// Package natsevents publishes call lifecycle events to NATS.
//
// Each terminal call is published as JSON on "<subject>.<state>", e.g.
// "recapi.calls.done" or "recapi.calls.failed".
package natsevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// DefaultSubject is the subject prefix used when none is given.
const DefaultSubject = "recapi.calls"

// ErrConnectionRequired is returned by New for a nil connection.
var ErrConnectionRequired = errors.New("nats connection is required")

// Sink is a recapi.EventSink over a NATS connection.
type Sink struct {
	conn    *nats.Conn
	subject string
	owned   bool
}

var _ recapi.EventSink = (*Sink)(nil)

// Connect dials url and returns a sink that drains the connection on Close.
func Connect(url, subject string, opts ...nats.Option) (*Sink, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	sink, err := New(conn, subject)
	if err != nil {
		conn.Close()

		return nil, err
	}

	sink.owned = true

	return sink, nil
}

// New publishes on an existing connection. Close leaves the connection open.
func New(conn *nats.Conn, subject string) (*Sink, error) {
	if conn == nil {
		return nil, ErrConnectionRequired
	}

	if subject == "" {
		subject = DefaultSubject
	}

	return &Sink{conn: conn, subject: subject}, nil
}

// Subject returns the subject event is published on.
func (s *Sink) Subject(event recapi.CallEvent) string {
	return s.subject + "." + string(event.State)
}

// Publish implements recapi.EventSink.Publish.
func (s *Sink) Publish(ctx context.Context, event recapi.CallEvent) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode call event: %w", err)
	}

	err = s.conn.Publish(s.Subject(event), data)
	if err != nil {
		return fmt.Errorf("failed to publish call event: %w", err)
	}

	return nil
}

// Close implements recapi.EventSink.Close.
func (s *Sink) Close() error {
	if !s.owned {
		return nil
	}

	err := s.conn.Drain()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}

	return nil
}
