// Package preservation records the append-only audit trail written by the
// ingestion and validation phases.
package preservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType names the phase that produced an event.
type EventType string

const (
	EventIngestion  EventType = "INGESTION"
	EventValidation EventType = "VALIDATION"
)

// Outcome is the result recorded by an event.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// OutcomeOf maps a boolean result onto an Outcome.
func OutcomeOf(ok bool) Outcome {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

var (
	ErrNoSubject   = errors.New("preservation: event subject required")
	ErrInvalidType = errors.New("preservation: invalid event type")
)

// Event is one immutable audit record about a repository object.
type Event struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Type      EventType `json:"type"`
	Outcome   Outcome   `json:"outcome"`
	Label     string    `json:"label,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Succeeded reports whether the event recorded a success.
func (e Event) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// normalize fills the id and timestamp and rejects malformed events.
func (e *Event) normalize(now time.Time) error {
	if strings.TrimSpace(e.Subject) == "" {
		return ErrNoSubject
	}
	switch e.Type {
	case EventIngestion, EventValidation:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	return nil
}

// Store persists events. Events are never updated or removed.
type Store interface {
	Append(ctx context.Context, ev Event) error
	// ListBySubject returns the subject's events in append order.
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
