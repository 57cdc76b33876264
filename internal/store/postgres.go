package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
)

// Postgres implements the durable stores (events, executions, validation
// records, users) on a pgx connection pool. All writes are single-row
// inserts or upserts; no transaction spans more than one table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect dials the database with a retry loop so the service survives a
// database that comes up after it does.
func Connect(ctx context.Context, databaseURL string, attempts int) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	for i := 0; i < attempts; i++ {
		pool, err = pgxpool.New(ctx, databaseURL)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).
			Msg("Waiting for database")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
}

// Ping checks database reachability. Used by the health aggregator.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
