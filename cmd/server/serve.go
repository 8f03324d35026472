package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/config"
	"github.com/D191001/libra/internal/database"
	"github.com/D191001/libra/internal/handler"
	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/metrics"
	"github.com/D191001/libra/internal/middleware"
	"github.com/D191001/libra/internal/outbox"
	"github.com/D191001/libra/internal/queue"
	"github.com/D191001/libra/internal/repository"
	"github.com/D191001/libra/internal/router"
	"github.com/D191001/libra/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with its background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, err := database.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
	}

	transactor := repository.NewTransactor(log, db)
	users := repository.NewUserRepo(db)
	lendingRepo := repository.NewLendingRepo(db)
	outboxRepo := repository.NewOutboxRepo(db, cfg.Outbox.MaxAttempts)

	if err := service.EnsureAdmin(ctx, log, users, cfg.Admin.Username, cfg.Admin.Password, cfg.BcryptCost); err != nil {
		return err
	}

	lender := service.NewLendingService(log,
		lending.NewPolicy(cfg.Lending.MaxActiveIssues),
		lendingRepo, transactor, outboxRepo,
		service.WithLockRetryDelay(cfg.Lending.LockRetryDelay),
	)

	workers, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.Outbox.Enabled {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer pub.Close()

		relay := outbox.New(log, outboxRepo, outbox.PublishHandler(pub, queue.LendingQueueName), transactor)
		relay.Start(workers, cfg.Outbox.Workers, cfg.Outbox.BatchSize, cfg.Outbox.WaitTime, cfg.Outbox.InProgressTTL)
		defer func() {
			cancelWorkers()
			relay.Wait()
		}()
		logger.MakeInfo(log, "outbox relay started", zap.Int("workers", cfg.Outbox.Workers))
	}

	if cfg.Overdue.Enabled {
		sched := cron.New()
		sweeper := service.NewOverdueSweeper(log, lendingRepo, outboxRepo, service.DefaultOverdueBatch)
		if _, err := sweeper.Schedule(workers, sched, cfg.Overdue.Schedule); err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		logger.MakeInfo(log, "overdue sweeper scheduled", zap.String("schedule", cfg.Overdue.Schedule))
	}

	e := newServer(cfg, log, db, users, lender, transactor)

	srvErr := make(chan error, 1)
	go func() {
		logger.MakeInfo(log, "listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-srvErr:
	}

	logger.MakeInfo(log, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.CheckError(err, log, "http shutdown", zap.Error(err))
	}
	cancelWorkers()
	return runErr
}

func newServer(
	cfg config.Config,
	log *zap.Logger,
	db *sqlx.DB,
	users *repository.UserRepo,
	lender *service.LendingService,
	transactor *repository.Transactor,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLog(log))

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil && (cfg.Cache.Enabled || cfg.RateLimit.Enabled) {
		logger.MakeWarn(log, "redis unreachable, cache and rate limit disabled", zap.String("addr", cfg.Redis.Addr))
	}

	auth := handler.NewAuthHandler(handler.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTL:      time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
		Timeout:        cfg.RequestTimeout,
	}, users, repository.NewTokenRepo(db), log)

	catalog := handler.NewCatalogHandler(
		repository.NewAuthorRepo(db),
		repository.NewBookRepo(db, transactor),
		repository.NewGenreRepo(db),
		lender, cfg.RequestTimeout, log,
	)

	router.RegisterRoutes(e, router.Deps{
		JWTSecret:    cfg.JWTSecret,
		ReadyTimeout: cfg.RequestTimeout,
		DB:           db,
		Users:        users,
		Auth:         auth,
		Cat:          catalog,
		Issues:       handler.NewBookIssueHandler(lender, cfg.RequestTimeout, log),
		Cache:        middleware.NewCache(cfg.Cache, rdb, log),
		RateLimit:    middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})
	return e
}
