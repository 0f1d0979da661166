package main

import (
	"context"

	"remoteassist/internal/bookings/events"
	"remoteassist/internal/bookings/handler"
	"remoteassist/internal/bookings/repository"
	"remoteassist/internal/bookings/service"
	"remoteassist/internal/bookings/validator"
	"remoteassist/pkg/app"
	"remoteassist/pkg/config"
	mongostore "remoteassist/pkg/db/mongo"
	"remoteassist/pkg/kafka"
	kafka_middleware "remoteassist/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	serverApp := app.NewApplication(cfg)

	store := connectStore(cfg)
	publisher, closePublisher := initPublisher(cfg)
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingService := initServices(cfg, store, bookingValidator, publisher)

	serverApp.OnShutdown("booking-events", bookingService.WaitForEvents)
	if closePublisher != nil {
		serverApp.OnShutdown("kafka", closePublisher)
	}
	serverApp.OnShutdown("mongo", store.Disconnect)

	serverApp.SetApp(
		handler.NewHealthHandler(store, handler.StoreSettings{
			URLSet:  cfg.DatabaseURL != "",
			NameSet: cfg.DatabaseName != "",
		}, cfg.Log),
		handler.NewBookingHandler(bookingService, bookingValidator, cfg.Log),
	)
	serverApp.Run()
}

// connectStore never aborts startup: without a usable store the API still
// serves and booking operations report storage errors.
func connectStore(cfg *config.Config) *mongostore.Store {
	if err := cfg.StoreProblem(); err != nil {
		cfg.Log.Error("Bookings store unavailable", "error", err)
		return mongostore.NewUnconfiguredStore(cfg.DatabaseName)
	}

	store, err := mongostore.Connect(context.Background(), cfg.Log, cfg.DatabaseURL, cfg.DatabaseName, cfg.MongoConnTimeout)
	if err != nil {
		cfg.Log.Error("MongoDB connection could not be set up; bookings store unavailable", "error", err)
		return mongostore.NewUnconfiguredStore(cfg.DatabaseName)
	}
	return store
}

// initPublisher returns a nil publisher when Kafka is off or unusable. The
// returned closer releases the producer.
func initPublisher(cfg *config.Config) (service.EventPublisher, func(context.Context) error) {
	if !cfg.Kafka.Enabled() {
		cfg.Log.Info("Kafka not configured; booking events disabled")
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer; booking events disabled", "error", err)
		return nil, nil
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Booking events enabled", "topic", producer.Topic())
	return events.NewPublisher(producer, cfg.Log), func(context.Context) error { return producer.Close() }
}

func initServices(cfg *config.Config, store *mongostore.Store, bookingValidator *validator.BookingValidator, publisher service.EventPublisher) service.BookingService {
	bookingRepo := repository.NewMongoBookingRepository(store, cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", store.Name(), "collection", repository.CollectionName)
	return bookingService
}
