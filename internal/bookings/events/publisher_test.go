package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"remoteassist/pkg/kafka"
	"remoteassist/pkg/logger"
	"remoteassist/pkg/middleware"
	"remoteassist/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	messages []kafka.Message
	err      error
}

func (f *fakeProducer) Publish(_ context.Context, msg kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func TestPublishBookingCreated(t *testing.T) {
	producer := &fakeProducer{}
	p := newPublisher(producer, logger.NewNop())

	ctx := middleware.WithRequestID(context.Background(), "req-123")
	booking := &model.Booking{
		ID:                "65f1c0ffee0000000000abcd",
		Status:            "pending",
		ServiceType:       "network",
		PreferredDatetime: "2024-05-01T10:00",
	}

	require.NoError(t, p.PublishBookingCreated(ctx, booking))
	require.Len(t, producer.messages, 1)

	msg := producer.messages[0]
	assert.Equal(t, booking.ID, msg.Key)
	assert.Equal(t, EventBookingCreated, msg.EventType())
	assert.Equal(t, "req-123", msg.CorrelationID())
	assert.Equal(t, SchemaVersion, msg.Headers[kafka.HeaderSchemaVersion])

	var event BookingCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, booking.ID, event.BookingID)
	assert.Equal(t, "pending", event.Status)
	assert.False(t, event.HasMeetingLink)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublishBookingCreated_NoID(t *testing.T) {
	producer := &fakeProducer{}
	p := newPublisher(producer, logger.NewNop())

	assert.Error(t, p.PublishBookingCreated(context.Background(), &model.Booking{}))
	assert.Empty(t, producer.messages)
}

func TestPublishBookingCreated_ProducerError(t *testing.T) {
	cause := errors.New("broker down")
	p := newPublisher(&fakeProducer{err: cause}, logger.NewNop())

	err := p.PublishBookingCreated(context.Background(), &model.Booking{ID: "abc"})
	assert.ErrorIs(t, err, cause)
}
