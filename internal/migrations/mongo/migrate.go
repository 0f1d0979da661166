package mongo

import (
	"context"
	"fmt"

	"remoteassist/internal/bookings/repository"
	"remoteassist/internal/migrations/mongo/validators"
	"remoteassist/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionDefinition is the desired shape of one collection.
type CollectionDefinition struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Definitions() []CollectionDefinition {
	return []CollectionDefinition{{
		Name: repository.CollectionName,
		Indexes: []mongo.IndexModel{{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_1"),
		}},
		Validator: validators.BookingValidator,
	}}
}

// RunMigration creates missing collections, refreshes validators on
// existing ones and ensures indexes. It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log = log.With("database", db.Name())
	log.Info("Running Mongo migrations")

	for _, def := range Definitions() {
		if err := apply(ctx, db, def, log.With("collection", def.Name)); err != nil {
			return fmt.Errorf("migrate %s: %w", def.Name, err)
		}
	}

	log.Info("Mongo migrations applied")
	return nil
}

func apply(ctx context.Context, db *mongo.Database, def CollectionDefinition, log *logger.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: def.Name}})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(names) == 0 {
		log.Info("Creating collection")
		if err := db.CreateCollection(ctx, def.Name, options.CreateCollection().SetValidator(def.Validator)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	} else {
		// collMod needs privileges some deployments withhold; the old
		// validator keeps working, so this is not fatal.
		cmd := bson.D{{Key: "collMod", Value: def.Name}, {Key: "validator", Value: def.Validator}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			log.Warn("Could not refresh validator", "error", err)
		}
	}

	if len(def.Indexes) == 0 {
		return nil
	}
	if _, err := db.Collection(def.Name).Indexes().CreateMany(ctx, def.Indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	log.Info("Indexes ensured", "count", len(def.Indexes))
	return nil
}
