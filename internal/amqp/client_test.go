package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBackOff(t *testing.T) {
	b := newPublishBackOff(context.Background())

	// jittered around 1s then 2s, then the retry budget is spent
	first := b.NextBackOff()
	assert.GreaterOrEqual(t, first, 500*time.Millisecond)
	assert.LessOrEqual(t, first, 1500*time.Millisecond)

	second := b.NextBackOff()
	assert.GreaterOrEqual(t, second, time.Second)
	assert.LessOrEqual(t, second, 3*time.Second)

	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestPublishBackOffStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, backoff.Stop, newPublishBackOff(ctx).NextBackOff())
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func tripBreaker(c *Client) {
	for i := 0; i < maxFailures; i++ {
		_, _ = c.breaker.Execute(func() (any, error) { return nil, amqp091.ErrClosed })
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := newClient("", "test_exchange", "test_queue", nil)
	client.breaker = newBreaker(20*time.Millisecond, client.logger)

	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())

	tripBreaker(client)
	assert.Equal(t, gobreaker.StateOpen, client.breaker.State())
	err := client.PublishTransactionLogged(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, client.breaker.State())

	// a successful trial closes it again
	_, err = client.breaker.Execute(func() (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
}

func TestClient_CancelledPublishDoesNotTrip(t *testing.T) {
	client := newClient("", "test_exchange", "test_queue", nil)
	for i := 0; i < maxFailures*2; i++ {
		_, _ = client.breaker.Execute(func() (any, error) { return nil, context.Canceled })
	}
	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
}

func TestPublishTransactionLogged_CancelledContext(t *testing.T) {
	client := newClient("", "test_exchange", "test_queue", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.PublishTransactionLogged(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransactionLoggedMessage_JSON(t *testing.T) {
	msg := NewTransactionLoggedMessage(42)
	require.NotEqual(t, uuid.Nil, msg.MessageID)

	data, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := TransactionLoggedMessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, msg.MessageID, got.MessageID)

	_, err = TransactionLoggedMessageFromJSON([]byte(`{"id":0}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = TransactionLoggedMessageFromJSON([]byte("invalid json"))
	assert.Error(t, err)
}

type fakeAck struct {
	acks, nacks int
	requeued    bool
}

func (f *fakeAck) Ack(uint64, bool) error { f.acks++; return nil }
func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeued = requeue
	return nil
}
func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	body, err := NewTransactionLoggedMessage(7).ToJSON()
	require.NoError(t, err)
	ctx := context.Background()
	client := newClient("", "test_exchange", "test_queue", nil)

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var seen int64
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: body}, func(_ context.Context, m *TransactionLoggedMessage) error {
			seen = m.ID
			return nil
		})
		assert.Equal(t, int64(7), seen)
		assert.Equal(t, 1, ack.acks)
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: body}, func(context.Context, *TransactionLoggedMessage) error {
			return errors.New("sheets down")
		})
		assert.Equal(t, 1, ack.nacks)
		assert.True(t, ack.requeued)
	})

	t.Run("drop undecodable body", func(t *testing.T) {
		ack := &fakeAck{}
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, Body: []byte("nope")}, func(context.Context, *TransactionLoggedMessage) error {
			t.Fatal("handler must not run")
			return nil
		})
		assert.Equal(t, 1, ack.nacks)
		assert.False(t, ack.requeued)
	})
}
