// Package postgres provides a direct pgx-backed storage adapter for
// deployments that talk to the invoice warehouse without PostgREST.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
)

var tracer = otel.Tracer("postgres")

// Store implements the ledger, company, insight and auth ports on
// top of a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, url string, metrics *observability.Metrics) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, metrics: metrics}, nil
}

// storeErr counts a backend failure and wraps it for the error mapper.
func (s *Store) storeErr(service string, err error) error {
	s.metrics.IncrStoreError(service)
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Ping reports backend reachability for the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
