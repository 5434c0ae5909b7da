package cmd

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/config"
	"bucket-list-backend/internal/graph"
	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/repository"
	"bucket-list-backend/internal/repository/postgres"
	"bucket-list-backend/internal/repository/sqlite"
	"bucket-list-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// app holds the wired services shared by serve and query
type app struct {
	store    repository.Store
	metrics  *metrics.Metrics
	hub      *services.MessageHub
	users    *services.UserService
	buckets  *services.BucketService
	chats    *services.ChatService
	media    *services.MediaService
	monitor  *services.HealthMonitor
	executor *graph.Executor
}

// openStore connects to the configured database backend
func openStore(ctx context.Context, db config.DatabaseConfig) (repository.Store, error) {
	switch db.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, db.DSN())
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		return sqlite.Open(db.DSN())
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

func newPusher(cfg config.PushConfig, m *metrics.Metrics) (services.Pusher, error) {
	if !cfg.Enabled {
		log.Info().Msg("Push notifications disabled")
		return services.NoopPusher{}, nil
	}
	pusher, err := services.NewAPNsPusher(services.APNsConfig{
		KeyFile:      cfg.KeyFile,
		KeyID:        cfg.KeyID,
		TeamID:       cfg.TeamID,
		CertFile:     cfg.CertFile,
		CertPassword: cfg.CertPassword,
		Topic:        cfg.Topic,
		Production:   cfg.Production,
	}, m)
	if err != nil {
		return nil, err
	}
	log.Info().Str("topic", cfg.Topic).Bool("production", cfg.Production).Msg("APNs push enabled")
	return pusher, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")

	a := &app{store: store, metrics: metrics.New()}

	pusher, err := newPusher(cfg.Push, a.metrics)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create pusher: %w", err)
	}

	if cfg.AWS.Enabled() {
		a.media, err = services.NewMediaService(ctx, services.MediaConfig{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			Endpoint:        cfg.AWS.Endpoint,
			AccessKeyID:     cfg.AWS.AccessKey,
			SecretAccessKey: cfg.AWS.SecretKey,
			UsePathStyle:    cfg.AWS.UsePathStyle,
			PublicBaseURL:   cfg.AWS.PublicBaseURL,
			UploadExpiry:    cfg.AWS.UploadExpiry,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create media service: %w", err)
		}
	} else {
		log.Info().Msg("Uploads disabled, no s3_bucket configured")
	}

	a.hub = services.NewMessageHub(cfg.GraphQL.SubscriptionBuffer, a.metrics)
	a.users = services.NewUserService(store.Users(), cfg.JWT.Secret)
	a.buckets = services.NewBucketService(store.Buckets(), store.Users())
	a.chats = services.NewChatService(store.Chats(), store.Users(), a.hub, pusher, a.metrics)

	a.monitor, err = services.NewHealthMonitor(store, a.hub, a.metrics, cfg.Health.Schedule)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.executor, err = graph.NewExecutor(
		graph.NewResolver(a.users, a.buckets, a.chats),
		graph.Options{MaxDepth: cfg.GraphQL.MaxDepth, MaxParallelism: cfg.GraphQL.MaxParallelism},
		a.metrics,
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) Close() {
	a.hub.Close()
	a.chats.WaitPushes()
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
}
