package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/events"
)

// Announcing decorates a Provider so that every placed or failed order is
// emitted on the bus. Bus errors are logged and never fail the order.
type Announcing struct {
	Provider
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Create implements Provider.
func (a Announcing) Create(ctx context.Context, req Request) (Order, error) {
	created, err := a.Provider.Create(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSubmissionFailed) {
			a.emit(ctx, events.TopicOrderFailed, uuid.NewString(), map[string]any{
				"reason": UserMessage(err),
				"items":  len(req.Items),
				"total":  req.Total,
			})
		}
		return Order{}, err
	}
	a.emit(ctx, events.TopicOrderCreated, created.ID, map[string]any{
		"orderId":   created.ID,
		"items":     len(created.Items),
		"total":     created.Total,
		"createdAt": created.CreatedAt,
	})
	return created, nil
}

// List delegates to the wrapped provider when it supports listing.
func (a Announcing) List(ctx context.Context, offset, limit int) ([]Order, int, error) {
	lister, ok := a.Provider.(Lister)
	if !ok {
		return nil, 0, errors.New("order: listing not supported")
	}
	return lister.List(ctx, offset, limit)
}

func (a Announcing) emit(ctx context.Context, topic, key string, payload any) {
	if a.Bus == nil {
		return
	}
	if _, err := a.Bus.Emit(ctx, topic, key, payload); err != nil {
		a.Logger.Warn().Err(err).Str("topic", topic).Str("key", key).Msg("emit order event failed")
	}
}

var _ Provider = Announcing{}
