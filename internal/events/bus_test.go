package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/events"
)

type capturePublisher struct {
	events []events.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestEmitFansOut(t *testing.T) {
	pub := &capturePublisher{}
	notifier := &captureNotifier{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Publisher: pub,
		Notifiers: []events.Notifier{notifier},
		Now:       func() time.Time { return fixed },
	}

	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", map[string]any{"orderId": "order-1"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, event.Topic)
	require.Equal(t, fixed, event.OccurredAt)
	require.JSONEq(t, `{"orderId":"order-1"}`, string(event.Payload))
	require.Len(t, pub.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, pub.events[0].ID)
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{}
	_, err := bus.Emit(context.Background(), " ", "k", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicOrderCreated, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), events.TopicOrderCreated, "k", "{bad")
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(context.Background(), events.TopicOrderCreated, "k", nil)
	require.Error(t, err)
}

func TestEmitJoinsPublisherError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	notifier := &captureNotifier{}
	bus := events.Bus{Publisher: pub, Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, "k", nil)
	require.ErrorContains(t, err, "broker down")
	require.Len(t, notifier.events, 1)
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	pub := events.NewKafkaPublisherWithWriter(w, "orders.created")
	bus := events.Bus{Publisher: pub}

	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-9", map[string]string{"id": "order-9"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "order-9", string(w.msgs[0].Key))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, events.TopicOrderCreated, events.NewMessageCarrier(&w.msgs[0]).Get("event-topic"))

	require.NoError(t, pub.Close())
	require.True(t, w.closed)
}

func TestMessageCarrierSetReplaces(t *testing.T) {
	msg := kafka.Message{}
	c := events.NewMessageCarrier(&msg)
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	require.Equal(t, []string{"traceparent"}, c.Keys())
	require.Equal(t, "b", c.Get("traceparent"))
	require.Empty(t, c.Get("missing"))
}

func TestLogNotifierWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	bus := events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: zerolog.New(&buf)}}}
	_, err := bus.Emit(context.Background(), events.TopicOrderFailed, "k", nil)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, events.TopicOrderFailed, line["topic"])
	require.Equal(t, "domain event", line["message"])
}

func TestOnlyTopicsDropsOthers(t *testing.T) {
	pub := &capturePublisher{}
	bus := events.Bus{Publisher: events.OnlyTopics(pub, events.TopicOrderCreated)}

	_, err := bus.Emit(context.Background(), events.TopicOrderFailed, "k", nil)
	require.NoError(t, err)
	require.Empty(t, pub.events)

	_, err = bus.Emit(context.Background(), events.TopicOrderCreated, "k", nil)
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
}
