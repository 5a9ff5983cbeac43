package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"video-dashboard/internal/appstate"
	"video-dashboard/internal/backend"
	"video-dashboard/internal/dashboard"
	"video-dashboard/internal/poller"
	"video-dashboard/internal/queue"
	"video-dashboard/internal/shared/config"
	"video-dashboard/internal/shared/server"
	"video-dashboard/internal/shared/storage/db"
	localstore "video-dashboard/internal/shared/storage/object/local"
	s3store "video-dashboard/internal/shared/storage/object/s3"
	"video-dashboard/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Redis   *redis.Client
	Backend *backend.Client
	State   *appstate.Store
	Hub     *dashboard.Hub
	Service *dashboard.Service
	Handler *dashboard.Handler

	cancel context.CancelFunc
}

// Build wires the dashboard. Pollers and the live hub run until Close.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	if err != nil {
		return nil, err
	}
	app.Backend = client

	repo, err := app.buildPreferencesRepo(ctx)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	store := appstate.NewStore(repo, cfg.PrefsProfile)
	if err := store.Load(ctx); err != nil {
		if !isDevLike(cfg.Env) {
			app.closeStores()
			return nil, fmt.Errorf("load preferences: %w", err)
		}
		telemetry.Warn("bootstrap.preferences.load_failed", map[string]any{"error": err.Error()})
	}
	app.State = store

	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		app.closeStores()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.Hub = dashboard.NewHub(cfg.CORSAllowOrigin)
	go app.Hub.Run(runCtx)

	app.Service = dashboard.NewService(runCtx, dashboard.Deps{
		Backend:  client,
		Store:    store,
		Notifier: notifier,
		Hub:      app.Hub,
		Poll: poller.Options{
			Interval:    cfg.PollInterval,
			Backoff:     cfg.PollBackoff,
			MaxInterval: cfg.PollMaxInterval,
		},
	})
	app.Handler = dashboard.NewHandler(app.Service, store, app.Hub)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Dashboard: app.Handler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"backend_url": cfg.BackendURL,
		"prefs_store": cfg.PrefsStore,
		"notify":      cfg.NotifyQueueURL != "",
	})
	return app, nil
}

// Close stops polling and the live hub, waits for pending notifications and
// releases the preference store connections.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Service != nil {
		a.Service.Close()
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if a.DB != nil {
		_ = a.DB.Close()
		a.DB = nil
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
		a.Redis = nil
	}
}

func (a *App) buildPreferencesRepo(ctx context.Context) (appstate.PreferencesRepo, error) {
	cfg := a.Config
	switch cfg.PrefsStore {
	case config.PrefsStoreMemory:
		return appstate.NewMemoryRepo(), nil
	case config.PrefsStoreS3:
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return &appstate.ObjectRepo{Store: store}, nil
	case config.PrefsStorePostgres:
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB == nil {
			return appstate.NewMemoryRepo(), nil
		}
		a.DB = sqlDB
		return &appstate.PGRepo{DB: sqlDB}, nil
	case config.PrefsStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.redis.unavailable", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
				return appstate.NewMemoryRepo(), nil
			}
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.Redis = rdb
		return &appstate.RedisRepo{Client: rdb}, nil
	default:
		return &appstate.ObjectRepo{Store: localstore.New(cfg.LocalStoreDir)}, nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_url.empty", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil && !db.IsLambdaRuntime() {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.unavailable", map[string]any{"error": err.Error(), "fallback": "memory"})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildNotifier(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.NotifyQueueURL) == "" {
		return queue.LogClient{}, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.NotifyQueueURL)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
