package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remoteassist/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotConfigured = errors.New("mongo store is not configured")

// Store owns the single *mongo.Client shared by every request. The driver's
// client is safe for concurrent use. A Store built without a URI or database
// name is valid but unconfigured: it hands out nil collections and reports
// ErrNotConfigured from Ping.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	name    string
	timeout time.Duration
}

func NewUnconfiguredStore(dbName string) *Store {
	return &Store{name: dbName}
}

// Connect builds the client and pings the server once. An unreachable server
// is logged but not fatal; the driver keeps trying in the background and
// operations fail with their own errors until it comes up.
func Connect(ctx context.Context, log *logger.Logger, uri, dbName string, timeout time.Duration) (*Store, error) {
	if uri == "" || dbName == "" {
		log.Warn("Mongo store not configured", "database_url_set", uri != "", "database_name_set", dbName != "")
		return NewUnconfiguredStore(dbName), nil
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	store := &Store{
		client:  client,
		db:      client.Database(dbName),
		name:    dbName,
		timeout: timeout,
	}

	if err := store.Ping(ctx); err != nil {
		log.Warn("MongoDB is not reachable yet", "database", dbName, "error", err)
	} else {
		log.Info("Successfully connected to MongoDB", "database", dbName)
	}

	return store, nil
}

func (s *Store) Configured() bool {
	return s != nil && s.db != nil
}

func (s *Store) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Store) Client() *mongo.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *Store) Database() *mongo.Database {
	if s == nil {
		return nil
	}
	return s.db
}

// Collection returns nil when the store is unconfigured.
func (s *Store) Collection(name string) *mongo.Collection {
	if !s.Configured() {
		return nil
	}
	return s.db.Collection(name)
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.ListCollectionNames(ctx, bson.D{})
}

func (s *Store) Disconnect(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
