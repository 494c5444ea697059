package events

import "context"

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderCreated    = "order.created"
	TopicOrderFailed     = "order.failed"
)

// DefaultTopics returns the topics forwarded to the broker.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderFailed,
	}
}

// FilteredPublisher forwards only the listed topics to the wrapped Publisher.
type FilteredPublisher struct {
	Next   Publisher
	Topics map[string]struct{}
}

// OnlyTopics wraps next so that only the given topics reach it.
func OnlyTopics(next Publisher, topics ...string) FilteredPublisher {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return FilteredPublisher{Next: next, Topics: set}
}

// Publish implements Publisher.
func (f FilteredPublisher) Publish(ctx context.Context, event Event) error {
	if f.Next == nil {
		return nil
	}
	if _, ok := f.Topics[event.Topic]; !ok {
		return nil
	}
	return f.Next.Publish(ctx, event)
}
