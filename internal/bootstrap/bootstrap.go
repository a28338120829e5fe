package bootstrap

import (
	"context"
	"fmt"

	"github.com/dafibh/revledger/revledger-backend/internal/amqp"
	"github.com/dafibh/revledger/revledger-backend/internal/clock"
	"github.com/dafibh/revledger/revledger-backend/internal/config"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/dafibh/revledger/revledger-backend/internal/metrics"
	"github.com/dafibh/revledger/revledger-backend/internal/repository/postgres"
	"github.com/dafibh/revledger/revledger-backend/internal/repository/redisstore"
	"github.com/dafibh/revledger/revledger-backend/internal/repository/storage"
	"github.com/dafibh/revledger/revledger-backend/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Services holds the wired ledger components shared by the API server and
// the admin CLI
type Services struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Registry *prometheus.Registry

	Events         *service.RevenueEventService
	Queries        *service.RevenueQueryService
	Metrics        *metrics.RevenueMetrics
	DeadLetterSink service.DeadLetterSink

	// Optional backends, nil when not configured
	DeadLetters *storage.S3DeadLetterRepository
	Queue       *amqp.Client
	Claims      *postgres.IdempotencyRepository

	redis *redis.Client
}

// New connects to the configured backends and wires the services
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logger.WithComponent("bootstrap")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Connected to database")

	s := &Services{
		Config:   cfg,
		Pool:     pool,
		Registry: prometheus.NewRegistry(),
	}
	s.Metrics = metrics.NewRevenueMetrics(s.Registry)

	store, err := s.idempotencyStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	// Dead letters always go to the log; the S3 archive is added when configured
	sinks := service.MultiDeadLetterSink{service.NewLogDeadLetterSink(logger.WithComponent("dead_letters"))}
	if cfg.S3.Bucket != "" {
		archive, err := storage.NewS3DeadLetterRepository(ctx, cfg.S3)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize dead-letter archive: %w", err)
		}
		s.DeadLetters = archive
		sinks = append(sinks, archive)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Dead-letter archive enabled")
	}

	if cfg.AMQP.URL != "" {
		queue, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		s.Queue = queue
	}

	resolver := domain.NewPeriodResolver(cfg.PeriodMinYear, cfg.PeriodMaxYear)
	revenueRepo := postgres.NewRevenueRepository(pool)

	s.Events = service.NewRevenueEventService(revenueRepo, service.NewIdempotencyGuard(store), resolver)
	s.DeadLetterSink = sinks
	s.Events.SetDeadLetterSink(sinks)
	s.Events.SetMetrics(s.Metrics)

	s.Queries = service.NewRevenueQueryService(revenueRepo, postgres.NewInvoiceReader(pool), resolver, clock.System{})
	s.Queries.SetMetrics(s.Metrics)

	return s, nil
}

func (s *Services) idempotencyStore(ctx context.Context) (domain.IdempotencyStore, error) {
	log := logger.WithComponent("bootstrap")

	switch s.Config.IdempotencyBackend {
	case config.IdempotencyPostgres:
		s.Claims = postgres.NewIdempotencyRepository(s.Pool)
		log.Info().Msg("Using PostgreSQL idempotency store")
		return s.Claims, nil
	case config.IdempotencyRedis:
		client, err := redisstore.NewClient(ctx, s.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		log.Info().Dur("ttl", s.Config.IdempotencyTTL).Msg("Using Redis idempotency store")
		return redisstore.NewIdempotencyStore(client, s.Config.IdempotencyTTL), nil
	default:
		log.Warn().Msg("Using in-memory idempotency store; duplicates are only detected within this process")
		return service.NewMemoryIdempotencyStore(), nil
	}
}

// Close releases every backend connection
func (s *Services) Close() {
	if s.Queue != nil {
		if err := s.Queue.Close(); err != nil {
			bootstrapLog := logger.WithComponent("bootstrap")
			bootstrapLog.Warn().Err(err).Msg("Failed to close AMQP client")
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
