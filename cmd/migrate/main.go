package main

import (
	"context"
	"time"

	mongoMigration "remoteassist/internal/migrations/mongo"
	"remoteassist/pkg/config"
	mongostore "remoteassist/pkg/db/mongo"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.Log.Info("Starting Mongo migration job")

	if err := cfg.StoreProblem(); err != nil {
		cfg.Log.Fatal("Migration requires a valid DATABASE_URL and DATABASE_NAME", "error", err)
	}

	store, err := mongostore.Connect(ctx, cfg.Log, cfg.DatabaseURL, cfg.DatabaseName, cfg.MongoConnTimeout)
	if err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer func() {
		if err := store.Disconnect(context.Background()); err != nil {
			cfg.Log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	if err := store.Ping(ctx); err != nil {
		cfg.Log.Fatal("MongoDB is not reachable", "error", err)
	}

	if err := mongoMigration.RunMigration(ctx, store.Database(), cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
