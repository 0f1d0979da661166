package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"remoteassist/pkg/config"
	"remoteassist/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewEvent("65f1c0ffee", Envelope{
		Type:          "booking.created",
		Source:        "bookings",
		SchemaVersion: "1",
		CorrelationID: "req-1",
	}, map[string]string{"status": "pending"})
	require.NoError(t, err)
	return msg
}

func TestNewProducer_Validation(t *testing.T) {
	log := logger.NewNop()

	_, err := NewProducer(nil, log)
	assert.Error(t, err)

	_, err = NewProducer(&config.KafkaConfig{Topic: "bookings.events"}, log)
	assert.Error(t, err)

	_, err = NewProducer(&config.KafkaConfig{Brokers: []string{"localhost:9092"}}, log)
	assert.Error(t, err)

	p, err := NewProducer(&config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "bookings.events",
		DLQTopic:     "bookings.dlq",
		MaxAttempts:  1,
		BatchTimeout: time.Millisecond,
		Compression:  "zstd",
	}, log)
	require.NoError(t, err)
	assert.Equal(t, "bookings.events", p.Topic())
	assert.NotNil(t, p.dlqWriter)
	require.NoError(t, p.Close())
}

func TestNewEvent(t *testing.T) {
	msg := buildMessage(t)

	assert.Equal(t, "65f1c0ffee", msg.Key)
	assert.NotEmpty(t, msg.EventID())
	assert.Equal(t, "booking.created", msg.EventType())
	assert.Equal(t, "req-1", msg.CorrelationID())
	assert.Equal(t, "bookings", msg.Headers[HeaderSource])
	assert.Equal(t, "1", msg.Headers[HeaderSchemaVersion])
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "pending", payload["status"])
}

func TestNewEvent_OmitsEmptyCorrelationID(t *testing.T) {
	msg, err := NewEvent("k", Envelope{Type: "booking.created"}, struct{}{})
	require.NoError(t, err)

	_, ok := msg.Headers[HeaderCorrelationID]
	assert.False(t, ok)
}

func TestNewEvent_EncodingError(t *testing.T) {
	_, err := NewEvent("k", Envelope{Type: "booking.created"}, make(chan int))
	assert.Error(t, err)
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, compressionCodecs["gzip"], compressionFor("gzip"))
	assert.Equal(t, compressionCodecs["snappy"], compressionFor("unknown"))
}

func TestPublish_WritesHeadersAndTopic(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "bookings.events")

	var seenTopic string
	p.Use(func(next PublishFunc) PublishFunc {
		return func(ctx context.Context, msg Message) error {
			seenTopic = msg.Topic
			return next(ctx, msg)
		}
	})

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "bookings.events", seenTopic)
	assert.Equal(t, "65f1c0ffee", string(w.messages[0].Key))
	assert.Equal(t, "booking.created", headerValue(w.messages[0], HeaderEventType))
}

func TestPublish_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t")

	var order []string
	for _, name := range []string{"first", "second"} {
		name := name
		p.Use(func(next PublishFunc) PublishFunc {
			return func(ctx context.Context, msg Message) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		})
	}

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublish_RejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestPublish_FailureGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := newProducer(&fakeWriter{err: writeErr}, "bookings.events")
	p.dlqWriter = dlq

	msg := buildMessage(t)
	err := p.Publish(context.Background(), msg)

	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "bookings.events", headerValue(dlq.messages[0], HeaderOriginalTopic))
	assert.Equal(t, "leader not available", headerValue(dlq.messages[0], HeaderDLQError))
	assert.Empty(t, msg.Headers[HeaderOriginalTopic], "caller's headers must not be mutated")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t")

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
}
