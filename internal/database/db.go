package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/config"
	"github.com/D191001/libra/internal/logger"
)

const pingTimeout = 3 * time.Second

// Open connects to MySQL and waits until the server answers a ping.  The
// wait is a bounded exponential backoff so a database that is still booting
// next to the service does not fail startup, while a wrong address still
// fails after cfg.ReadyAttempts pings.
func Open(ctx context.Context, cfg config.DBConfig, log *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := WaitReady(ctx, db, cfg, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Pinger is the part of *sqlx.DB the readiness loop needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WaitReady pings p until it answers or the attempts are used up.
func WaitReady(ctx context.Context, p Pinger, cfg config.DBConfig, log *zap.Logger) error {
	attempts := cfg.ReadyAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := cfg.ReadyBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.NewExponential(base)
	if cfg.ReadyMaxDelay > 0 {
		backoff = retry.WithCappedDuration(cfg.ReadyMaxDelay, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff)

	try := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		try++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := p.PingContext(pingCtx); err != nil {
			logger.MakeWarn(log, "database not ready",
				zap.Int("attempt", try), zap.Int("max_attempts", attempts), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database not ready after %d attempts: %w", try, err)
	}
	logger.MakeInfo(log, "database ready", zap.Int("attempts", try))
	return nil
}
