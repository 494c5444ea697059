package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event ready for fan-out.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Topic      string          `json:"topic"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Publisher ships events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Notifier reacts to emitted events (logs, metrics, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus stamps domain events and fans them out to downstream handlers.
type Bus struct {
	Publisher Publisher
	Notifiers []Notifier
	Now       func() time.Time
}

// Emit builds the event and dispatches it to all configured handlers. Handler
// failures are joined and returned alongside the event.
func (b *Bus) Emit(ctx context.Context, topic, key string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if strings.TrimSpace(key) == "" {
		return Event{}, errors.New("events: key is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ev := Event{
		ID:         uuid.New(),
		Topic:      topic,
		Key:        key,
		Payload:    encoded,
		OccurredAt: now().UTC(),
	}
	var joined error
	if b.Publisher != nil {
		if pubErr := b.Publisher.Publish(ctx, ev); pubErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: publish: %w", pubErr))
		}
	}
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return validJSON(v)
	case json.RawMessage:
		return validJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return validJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validJSON(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(data) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), data...), nil
}
