package service

import (
	"context"
	"sync"
	"time"

	bookingserrors "remoteassist/internal/bookings/errors"
	"remoteassist/internal/bookings/repository"
	"remoteassist/internal/bookings/validator"
	"remoteassist/pkg/config"
	"remoteassist/pkg/model"
)

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	List(ctx context.Context, status string) ([]*model.Booking, error)
	// WaitForEvents blocks until in-flight event publishes finish or ctx ends.
	WaitForEvents(ctx context.Context) error
}

// EventPublisher receives bookings after they are stored.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *model.Booking) error
}

const defaultPublishTimeout = 10 * time.Second

type bookingService struct {
	repo           repository.BookingRepository
	validator      *validator.BookingValidator
	publisher      EventPublisher
	publishTimeout time.Duration
	pending        sync.WaitGroup
	cfg            *config.Config
}

// NewBookingService wires the service. publisher may be nil.
func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	publisher EventPublisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:           repo,
		validator:      validator,
		publisher:      publisher,
		publishTimeout: defaultPublishTimeout,
		cfg:            cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, bookingserrors.ToAppError(err)
	}

	booking := req.ToBooking()
	if _, err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, bookingserrors.ToAppError(err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"status", booking.Status,
		"service_type", booking.ServiceType,
	)

	s.publishCreated(ctx, booking)
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, status string) ([]*model.Booking, error) {
	bookings, err := s.repo.List(ctx, status)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "status", status, "error", err)
		return nil, bookingserrors.ToAppError(err)
	}

	s.cfg.Log.Debug("Bookings listed", "status", status, "count", len(bookings))
	return bookings, nil
}

// publishCreated hands the event to a background goroutine so a slow broker
// never holds the response. The goroutine keeps the request's values (request
// id) but not its deadline or cancellation.
func (s *bookingService) publishCreated(ctx context.Context, booking *model.Booking) {
	if s.publisher == nil {
		return
	}

	event := *booking
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()

		if err := s.publisher.PublishBookingCreated(ctx, &event); err != nil {
			s.cfg.Log.Warn("Failed to publish booking event", "id", event.ID, "error", err)
		}
	}()
}

func (s *bookingService) WaitForEvents(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
