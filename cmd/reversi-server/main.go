package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/reversi-arena/internal/archive"
	"github.com/park285/reversi-arena/internal/arena"
	appcfg "github.com/park285/reversi-arena/internal/config"
	"github.com/park285/reversi-arena/internal/httpapi"
	"github.com/park285/reversi-arena/internal/hub"
	"github.com/park285/reversi-arena/internal/msgcat"
	"github.com/park285/reversi-arena/internal/obslog"
	"github.com/park285/reversi-arena/internal/registry"
	"github.com/park285/reversi-arena/internal/render"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New(hub.WithMaxBacklog(cfg.SubscriberBacklog), hub.WithLogger(obslog.Named("hub")))
	reg := registry.New(
		registry.WithEvictionPolicy(registry.IdleTimeout(cfg.SessionIdleTTL)),
		registry.WithEvictHook(func(id string) { h.CloseSession(id) }),
		registry.WithLogger(obslog.Named("registry")),
	)
	go reg.Run(ctx, cfg.SessionSweepInterval)

	archivers, results, closers := openArchives(ctx, cfg, logger)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	opts := []arena.Option{
		arena.WithLogger(obslog.Named("arena")),
		arena.WithAgentDelay(cfg.AgentMoveDelay),
	}
	if len(archivers) > 0 {
		opts = append(opts, arena.WithArchiver(archive.Multi(archivers...)))
	}
	svc := arena.New(reg, h, opts...)

	apiOpts := []httpapi.Option{
		httpapi.WithCatalog(cat),
		httpapi.WithRenderer(render.NewPNGRenderer(cat)),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
		httpapi.WithDefaults(arena.Settings{TurnCooldown: cfg.TurnCooldown, BlackIsHuman: true, WhiteIsHuman: true}),
		httpapi.WithLogger(obslog.Named("http")),
	}
	if results != nil {
		apiOpts = append(apiOpts, httpapi.WithResults(results))
	}
	srv := httpapi.New(svc, apiOpts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Addr()) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_error", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	svc.Close()
	logger.Info("shutdown_complete")
}

// openArchives connects every configured result sink. A sink that fails to connect is logged
// and skipped so the arena still serves games.
func openArchives(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger) ([]archive.Archiver, httpapi.ResultLister, []io.Closer) {
	var (
		archivers []archive.Archiver
		results   httpapi.ResultLister
		closers   []io.Closer
	)
	if cfg.RedisURL != "" {
		store, err := archive.NewRedisStore(ctx, cfg.RedisURL, archive.WithResultTTL(cfg.ResultTTL))
		if err != nil {
			logger.Error("redis_init_error", zap.Error(err))
		} else {
			archivers = append(archivers, store)
			results = store
			closers = append(closers, store)
		}
	}
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(ctx, cfg.DatabaseURL)
		if err == nil {
			err = repo.Migrate(ctx)
			if err != nil {
				_ = repo.Close()
			}
		}
		if err != nil {
			logger.Error("postgres_init_error", zap.Error(err))
		} else {
			archivers = append(archivers, repo)
			closers = append(closers, repo)
		}
	}
	if cfg.RabbitMQURL != "" {
		pub, err := archive.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("amqp_init_error", zap.Error(err))
		} else {
			archivers = append(archivers, pub)
			closers = append(closers, pub)
		}
	}
	logger.Info("archives_ready", zap.Int("sinks", len(archivers)), zap.Bool("results", results != nil))
	return archivers, results, closers
}
