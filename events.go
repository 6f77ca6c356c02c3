package authgate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the two gate event types.
type EventKind string

const (
	// EventAuthenticationSucceeded is published once per successful run.
	EventAuthenticationSucceeded EventKind = "authentication.succeeded"
	// EventAuthenticationFailed is published once per failed run.
	EventAuthenticationFailed EventKind = "authentication.failed"
)

// Event is a best-effort notification of one finished gate run. Failure
// events carry the best-effort identity: the submitted username when the run
// failed before an account was loaded, the verified identity otherwise.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      EventKind         `json:"kind"`
	Identity  string            `json:"identity,omitempty"`
	Purpose   string            `json:"purpose"`
	Reason    string            `json:"reason,omitempty"`
	ClientIP  string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventSink receives gate events. Delivery is fire-and-forget: a sink failure
// or panic never affects the authentication outcome already decided.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events to a buffered channel, for hosts that consume
// them on their own goroutine.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON line per event, e.g. to an audit log file.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a [JSONWriterSink] on w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

func newEvent(kind EventKind, purpose Purpose) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Purpose:   purpose.String(),
	}
}
