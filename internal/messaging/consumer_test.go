package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/greatwhitesecurity/opshub/internal/events"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func noopResolved(context.Context, *events.LinkResolved) error { return nil }

func resolvedMessage(t *testing.T, event events.LinkResolved) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved, noopResolved, zap.NewNop())

		err := consumer.Start(context.Background())

		require.NoError(t, err)
		assert.Equal(t, events.TopicLinkResolved, consumer.Topic())

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("returns error when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved, noopResolved, zap.NewNop())

		err := consumer.Start(context.Background())

		require.Error(t, err)
		require.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks after the handler succeeds", func(t *testing.T) {
		sub := newMockSubscriber()
		received := make(chan *events.LinkResolved, 1)

		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved,
			func(_ context.Context, event *events.LinkResolved) error {
				received <- event

				return nil
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := resolvedMessage(t, events.LinkResolved{Code: "AbC234", ClientIP: "203.0.113.9"})
		sub.msgChan <- msg

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			t.Fatal("message was nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		event := <-received
		assert.Equal(t, "AbC234", event.Code)
		assert.Equal(t, "203.0.113.9", event.ClientIP)
	})

	t.Run("acks and drops an undecodable payload", func(t *testing.T) {
		sub := newMockSubscriber()
		called := false

		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved,
			func(context.Context, *events.LinkResolved) error {
				called = true

				return nil
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))
		sub.msgChan <- msg

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			t.Fatal("undecodable message should not be redelivered")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		assert.False(t, called)
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved,
			func(context.Context, *events.LinkResolved) error {
				return errors.New("audit store unavailable")
			},
			zap.NewNop(),
		)
		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := resolvedMessage(t, events.LinkResolved{Code: "AbC234"})
		sub.msgChan <- msg

		select {
		case <-msg.Nacked():
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("shuts down gracefully", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved, noopResolved, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("returns when never started", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), events.TopicLinkResolved, noopResolved, zap.NewNop())

		require.NoError(t, consumer.Shutdown())
	})

	t.Run("stops when the subscription closes", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, events.TopicLinkResolved, noopResolved, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		require.NoError(t, sub.Close())
		require.NoError(t, consumer.Shutdown())
	})
}
