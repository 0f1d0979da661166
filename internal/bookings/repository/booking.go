package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "remoteassist/internal/bookings/errors"
	"remoteassist/pkg/config"
	mongostore "remoteassist/pkg/db/mongo"
	"remoteassist/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "booking"
)

// Collection is the part of *mongo.Collection the repository uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (string, error)
	List(ctx context.Context, status string) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	collection   Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// bookingDocument is the stored shape. Optional fields are written as null.
type bookingDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Name              string             `bson:"name"`
	Email             string             `bson:"email"`
	Phone             *string            `bson:"phone"`
	ServiceType       string             `bson:"service_type"`
	IssueDescription  string             `bson:"issue_description"`
	PreferredDatetime string             `bson:"preferred_datetime"`
	Status            string             `bson:"status"`
	MeetingLink       *string            `bson:"meeting_link"`
}

// NewMongoBookingRepository binds to the booking collection of store. An
// unconfigured store yields a repository whose operations fail with
// ErrStoreUnavailable.
func NewMongoBookingRepository(store *mongostore.Store, cfg *config.Config) BookingRepository {
	var collection Collection
	if store.Configured() {
		collection = store.Collection(CollectionName)
	}
	return NewBookingRepository(collection, cfg.ReadTimeout, cfg.WriteTimeout)
}

func NewBookingRepository(collection Collection, readTimeout, writeTimeout time.Duration) BookingRepository {
	return &mongoBookingRepository{
		collection:   collection,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// withTimeout keeps an earlier caller deadline.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) (string, error) {
	if r.collection == nil {
		return "", bookingserrors.NewStorageError("create", bookingserrors.ErrStoreUnavailable)
	}

	ctx, cancel := r.withTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, toDocument(booking))
	if err != nil {
		return "", bookingserrors.NewStorageError("create", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", bookingserrors.NewStorageError("create", fmt.Errorf("unexpected inserted id type %T", result.InsertedID))
	}

	booking.ID = oid.Hex()
	return booking.ID, nil
}

// List returns every booking whose status equals status, or all bookings
// when status is empty. Order is whatever the store yields.
func (r *mongoBookingRepository) List(ctx context.Context, status string) ([]*model.Booking, error) {
	if r.collection == nil {
		return nil, bookingserrors.NewStorageError("list", bookingserrors.ErrStoreUnavailable)
	}

	ctx, cancel := r.withTimeout(ctx, r.readTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, buildStatusFilter(status))
	if err != nil {
		return nil, bookingserrors.NewStorageError("list", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, bookingserrors.NewStorageError("list", fmt.Errorf("failed to decode bookings: %w", err))
	}

	bookings := make([]*model.Booking, 0, len(docs))
	for i := range docs {
		bookings = append(bookings, docs[i].toModel())
	}

	return bookings, nil
}

func buildStatusFilter(status string) bson.M {
	if status == "" {
		return bson.M{}
	}
	return bson.M{"status": status}
}

func toDocument(b *model.Booking) *bookingDocument {
	doc := &bookingDocument{
		Name:              b.Name,
		Email:             b.Email,
		Phone:             b.Phone,
		ServiceType:       b.ServiceType,
		IssueDescription:  b.IssueDescription,
		PreferredDatetime: b.PreferredDatetime,
		Status:            b.Status,
		MeetingLink:       b.MeetingLink,
	}
	if oid, err := primitive.ObjectIDFromHex(b.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d *bookingDocument) toModel() *model.Booking {
	return &model.Booking{
		ID:                d.ID.Hex(),
		Name:              d.Name,
		Email:             d.Email,
		Phone:             d.Phone,
		ServiceType:       d.ServiceType,
		IssueDescription:  d.IssueDescription,
		PreferredDatetime: d.PreferredDatetime,
		Status:            d.Status,
		MeetingLink:       d.MeetingLink,
	}
}
