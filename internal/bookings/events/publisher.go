package events

import (
	"context"
	"fmt"
	"time"

	"remoteassist/pkg/kafka"
	"remoteassist/pkg/logger"
	"remoteassist/pkg/middleware"
	"remoteassist/pkg/model"
)

const (
	EventBookingCreated = "booking.created"
	SchemaVersion       = "1"
	Source              = "bookings"
)

type BookingCreatedEvent struct {
	BookingID         string    `json:"booking_id"`
	Status            string    `json:"status"`
	ServiceType       string    `json:"service_type"`
	PreferredDatetime string    `json:"preferred_datetime"`
	HasMeetingLink    bool      `json:"has_meeting_link"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher emits booking lifecycle events to Kafka, keyed by booking id.
type Publisher struct {
	producer messagePublisher
	log      *logger.Logger
}

func NewPublisher(producer *kafka.Producer, log *logger.Logger) *Publisher {
	return newPublisher(producer, log)
}

func newPublisher(producer messagePublisher, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) PublishBookingCreated(ctx context.Context, booking *model.Booking) error {
	if booking == nil || booking.ID == "" {
		return fmt.Errorf("cannot publish %s: booking has no id", EventBookingCreated)
	}

	msg, err := kafka.NewEvent(booking.ID, kafka.Envelope{
		Type:          EventBookingCreated,
		Source:        Source,
		SchemaVersion: SchemaVersion,
		CorrelationID: middleware.GetRequestID(ctx),
	}, BookingCreatedEvent{
		BookingID:         booking.ID,
		Status:            booking.Status,
		ServiceType:       booking.ServiceType,
		PreferredDatetime: booking.PreferredDatetime,
		HasMeetingLink:    booking.MeetingLink != nil,
		OccurredAt:        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", EventBookingCreated, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", EventBookingCreated, err)
	}

	p.log.Debug("Booking event published", "event_type", EventBookingCreated, "booking_id", booking.ID)
	return nil
}
