package preservation

import (
	"context"
	"fmt"
	"time"

	"github.com/cordum/depositor/core/infra/bus"
	"github.com/cordum/depositor/core/infra/logging"
)

// Publisher fans events out to subscribers. *bus.NatsBus satisfies it.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Recorder stamps events, appends them to a Store and optionally publishes
// them. The store is authoritative; publish failures are logged only.
type Recorder struct {
	store     Store
	publisher Publisher
	prefix    string
	now       func() time.Time
}

// NewRecorder builds a recorder. publisher may be nil.
func NewRecorder(store Store, publisher Publisher, subjectPrefix string) *Recorder {
	return &Recorder{store: store, publisher: publisher, prefix: subjectPrefix, now: time.Now}
}

// Record appends an event for subject and returns it as stored.
func (r *Recorder) Record(ctx context.Context, subject string, typ EventType, outcome Outcome, label, detail string) (Event, error) {
	ev := Event{Subject: subject, Type: typ, Outcome: outcome, Label: label, Detail: detail}
	if err := ev.normalize(r.now()); err != nil {
		return Event{}, err
	}
	if err := r.store.Append(ctx, ev); err != nil {
		return Event{}, fmt.Errorf("record %s event for %s: %w", typ, subject, err)
	}
	if r.publisher != nil && r.prefix != "" {
		topic := bus.EventSubject(r.prefix, string(typ))
		if err := r.publisher.PublishJSON(topic, ev); err != nil {
			logging.Warn("preservation", "event publish failed", "subject", subject, "topic", topic, "error", err)
		}
	}
	return ev, nil
}

// Events returns the recorded history for subject.
func (r *Recorder) Events(ctx context.Context, subject string) ([]Event, error) {
	return r.store.ListBySubject(ctx, subject)
}
