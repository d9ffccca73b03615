package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
)

// ConnectOptions holds the pool and retry settings of a database connection
type ConnectOptions struct {
	Name            string // Label used in logs, e.g. "target" or "wordpress"
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration // Queries slower than this are logged as warnings
	MaxElapsedTime  time.Duration // How long to keep retrying an unreachable database
}

// Connect opens a gorm connection, retrying with exponential backoff until the
// database answers a ping or MaxElapsedTime passes
func Connect(ctx context.Context, dialector gorm.Dialector, opts ConnectOptions) (*gorm.DB, error) {
	if opts.SlowThreshold == 0 {
		opts.SlowThreshold = time.Second
	}
	if opts.MaxElapsedTime == 0 {
		opts.MaxElapsedTime = time.Minute
	}

	var db *gorm.DB
	operation := func() error {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.NewGormLogger(opts.SlowThreshold),
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get underlying sql.DB: %w", err))
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = opts.MaxElapsedTime

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "Database not reachable, retrying",
			zap.String("database", opts.Name),
			zap.Error(err),
			zap.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", opts.Name, err)
	}

	if err := ConfigureConnectionPool(db, opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime, opts.ConnMaxIdleTime); err != nil {
		return nil, err
	}

	return db, nil
}
