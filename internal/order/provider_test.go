package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/order"
)

func TestMockCreateAndGet(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m := order.NewMock(order.MockConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	o, err := m.Create(ctx, validRequest())
	require.NoError(t, err)
	_, err = uuid.Parse(o.ID)
	require.NoError(t, err)
	require.Equal(t, now, o.CreatedAt)
	require.Equal(t, now.Add(order.DefaultDeliveryLead), o.EstimatedDelivery)

	got, err := m.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)

	_, err = m.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestMockIDsAreUnique(t *testing.T) {
	m := order.NewMock(order.MockConfig{})
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		o, err := m.Create(context.Background(), validRequest())
		require.NoError(t, err)
		require.False(t, seen[o.ID])
		seen[o.ID] = true
	}
}

func TestMockInjectedFailure(t *testing.T) {
	m := order.NewMock(order.MockConfig{Failures: order.NewFailNext(1, nil)})
	ctx := context.Background()

	_, err := m.Create(ctx, validRequest())
	require.ErrorIs(t, err, order.ErrSubmissionFailed)
	require.Equal(t, order.FailureMessage, order.UserMessage(err))

	_, err = m.Create(ctx, validRequest())
	require.NoError(t, err)
}

func TestMockRejectsInvalidRequest(t *testing.T) {
	m := order.NewMock(order.MockConfig{})
	req := validRequest()
	req.PaymentInfo.CardNumber = "   "
	_, err := m.Create(context.Background(), req)
	require.ErrorIs(t, err, order.ErrInvalidRequest)
}

func TestMockDelayHonoursContext(t *testing.T) {
	m := order.NewMock(order.MockConfig{Delay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Create(ctx, validRequest())
	require.ErrorIs(t, err, order.ErrSubmissionFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRandomFailure(t *testing.T) {
	always := order.RandomFailureWith(0.1, func() float64 { return 0.05 })
	never := order.RandomFailureWith(0.1, func() float64 { return 0.5 })
	require.True(t, always.ShouldFail(order.Request{}))
	require.False(t, never.ShouldFail(order.Request{}))
	require.False(t, order.RandomFailure(0).ShouldFail(order.Request{}))
}

func TestMockListNewestFirst(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := order.NewMock(order.MockConfig{Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}})
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		o, err := m.Create(ctx, validRequest())
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	page, total, err := m.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[1], page[1].ID)

	page, _, err = m.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Empty(t, page)
}
