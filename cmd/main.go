package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/authsession/database"
	grpcctx "github.com/dtroode/authsession/internal/api/grpc/context"
	"github.com/dtroode/authsession/internal/api/grpc/router"
	grpcServer "github.com/dtroode/authsession/internal/api/grpc/server"
	"github.com/dtroode/authsession/internal/config"
	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/repository/postgres"
	"github.com/dtroode/authsession/internal/server"
	"github.com/dtroode/authsession/internal/service"
	"github.com/dtroode/authsession/internal/storage/redis"
	"github.com/dtroode/authsession/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	if err := database.Migrate(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	var wg sync.WaitGroup

	sharedStore, closeStore, err := openSharedStore(ctx, cfg, db, logger, &wg)
	if err != nil {
		logger.Fatal("failed to initialize shared store", "error", err, "driver", cfg.Store.Driver)
	}
	defer closeStore()

	codec, err := token.NewJWT(cfg.Token.Secret, cfg.Token.RefreshSecret, cfg.Token.Algorithm)
	if err != nil {
		logger.Fatal("failed to initialize token codec", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	store := service.NewStoreClient(sharedStore, cfg.Store.Timeout, logger)

	sessions := service.NewSessionManager(store, cfg.Session.TTL, logger)
	issuer := service.NewTokenIssuer(codec, store, cfg.Token.AccessTTL(), cfg.Token.RefreshTTL(), logger)
	revocations := service.NewRevocationRegistry(codec, store, logger, service.WithClockSkew(cfg.Token.ClockSkew))
	validator := service.NewTokenValidator(codec, store, revocations, logger)

	services := router.Services{
		Auth:          service.NewAuth(userRepo, sessions, issuer, validator, revocations, cfg.Store.Timeout, logger),
		Refresh:       service.NewRefreshRotator(codec, store, sessions, issuer, userRepo, cfg.Token.RotateRefresh, logger),
		Sessions:      sessions,
		Validator:     validator,
		Revocations:   revocations,
		PasswordReset: service.NewPasswordResetTokenManager(store, cfg.PasswordReset.TTL, cfg.PasswordReset.Retention, logger),
	}

	if cfg.GRPC.UpstreamSecret == "" {
		logger.Warn("GRPC_UPSTREAM_SECRET is not set, login over gRPC is disabled")
	}
	r := router.New(services, grpcctx.NewManager(), cfg.GRPC.UpstreamSecret, logger)
	grpcSrv := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))
	sl := server.NewSecurityLayer(cfg.GRPC)

	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(grpcSrv)

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting metrics server on", "address", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start metrics server", "error", err)
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	r.Shutdown()
	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", grpcSrv.Address())
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during metrics server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// openSharedStore connects the configured shared store backend. The postgres driver
// also starts a purge loop for expired keys that stops with ctx.
func openSharedStore(
	ctx context.Context,
	cfg *config.Config,
	db *postgres.Connection,
	logger *logger.Logger,
	wg *sync.WaitGroup,
) (model.SharedStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		kv := postgres.NewKVStore(db)
		wg.Add(1)
		go func() {
			defer wg.Done()
			purgeExpired(ctx, kv, cfg.Store.PurgeInterval, logger)
		}()
		return kv, func() {}, nil
	default:
		client, err := redis.NewClient(ctx, &goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewStore(client), func() { _ = client.Close() }, nil
	}
}

func purgeExpired(ctx context.Context, kv *postgres.KVStore, interval time.Duration, logger *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("failed to purge expired keys", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Debug("purged expired keys", "count", n)
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
