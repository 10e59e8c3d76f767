// Package bootstrap wires the configured backends shared by the server and the cronjob runner.
package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"vehirent-backend/internal/config"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
	"vehirent-backend/internal/repository/firestore"
	"vehirent-backend/internal/repository/memory"
	"vehirent-backend/internal/repository/postgres"
	"vehirent-backend/internal/service"
	"vehirent-backend/internal/storage"
)

// Backends holds the opened document store and the Firebase app, if one was needed.
type Backends struct {
	Repos    *repository.Store
	Firebase *firebase.App

	closers []func() error
}

// Close releases every opened client.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Failed to close backend", "error", err)
		}
	}
}

func needsFirebase(cfg *config.Config) bool {
	return cfg.Store.Type == config.StoreFirestore ||
		cfg.Storage.Type == storage.BackendFirebase ||
		cfg.Firebase.ProjectID != ""
}

// NewFirebaseApp initializes the Firebase app from the configured service account.
func NewFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}

// Open connects the document store selected by store.type.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	if needsFirebase(cfg) {
		app, err := NewFirebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		b.Firebase = app
		logger.Info("Firebase app initialized", "project_id", cfg.Firebase.ProjectID)
	}

	switch cfg.Store.Type {
	case config.StoreFirestore:
		client, err := b.Firebase.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.Repos = firestore.NewStore(client).Repositories()
		logger.Info("Using Firestore document store")

	case config.StorePostgres:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		store := postgres.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Repos = store.Repositories()
		logger.Info("Database connection established")

	default:
		logger.Warn("Using in-memory document store; data is lost on restart")
		b.Repos = memory.NewStore().Repositories()
	}
	return b, nil
}

// Notifications builds the push and email senders. Either falls back to a no-op when
// it is not configured.
func Notifications(ctx context.Context, cfg *config.Config, app *firebase.App) (service.Notifier, service.EmailService) {
	push := service.NewNoopNotifier()
	if app != nil {
		client, err := app.Messaging(ctx)
		if err != nil {
			logger.Error("Failed to get messaging client, push disabled", "error", err)
		} else {
			push = service.NewFCMNotifier(client)
		}
	}

	email := service.NewNoopEmailService()
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.FromName)
	} else {
		logger.Info("SendGrid API key not set, email disabled")
	}
	return push, email
}
