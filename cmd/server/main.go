package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"trustgrid/internal/platform/config"
	"trustgrid/internal/platform/httpserver"
	"trustgrid/internal/platform/logger"
	platformmetrics "trustgrid/internal/platform/metrics"
	platformredis "trustgrid/internal/platform/redis"
	"trustgrid/internal/registry"
	pgstore "trustgrid/internal/registry/store/postgres"
	redisstore "trustgrid/internal/registry/store/redis"
	"trustgrid/internal/resolution/metrics"
	"trustgrid/internal/resolution/service"
	httptransport "trustgrid/internal/transport/http"
	"trustgrid/internal/trust"
	"trustgrid/pkg/platform/audit"
	"trustgrid/pkg/platform/audit/publisher"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policySet, err := config.LoadPolicySet(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy set: %w", err)
	}

	catalog, health, cleanup, err := buildRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	defer cleanup()

	auditSink, err := buildAudit(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build audit publisher: %w", err)
	}

	verifier := trust.NewVerifier(trust.WithVerifierLogger(log))
	tokens := trust.NewInMemoryTokenSource()

	resolutionMetrics := metrics.New()
	svc, err := service.New(catalog, tokens, verifier, policySet.Gate,
		service.WithLogger(log),
		service.WithMetrics(resolutionMetrics),
		service.WithAudit(auditSink),
		service.WithOrganization(cfg.Organization),
		service.WithBus(cfg.Bus),
		service.WithRedactionPolicies(policySet.Policies, policySet.Assignment),
	)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	router := httptransport.NewRouter(
		httptransport.NewResolveHandler(svc),
		httptransport.NewRegistryHandler(catalog),
		httptransport.NewHealthHandler(health),
		log,
		platformmetrics.NewHTTP(),
	)

	srv := httpserver.New(cfg.Server.Addr, router)

	errc := make(chan error, 1)
	go func() {
		log.Info("starting trustgrid resolver", "addr", cfg.Server.Addr,
			"registry_backend", cfg.Registry.Backend, "organization", cfg.Organization)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := auditSink.Close(shutdownCtx); err != nil {
		log.Warn("audit publisher close failed", "error", err)
	}
	return nil
}

// buildRegistry selects the catalog backend. The returned cleanup is safe to
// call exactly once after the server stops.
func buildRegistry(ctx context.Context, cfg config.Config) (registry.Admin, map[string]httptransport.HealthChecker, func(), error) {
	health := make(map[string]httptransport.HealthChecker)

	switch cfg.Registry.Backend {
	case "memory", "":
		return registry.NewInMemoryRegistry(), health, func() {}, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.Registry.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		if _, err := db.ExecContext(ctx, pgstore.Schema); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		health["postgres"] = pingChecker{db}
		return pgstore.New(db), health, func() { _ = db.Close() }, nil

	case "redis":
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		if client == nil {
			return nil, nil, nil, errors.New("redis backend selected but TRUSTGRID_REDIS_URL is empty")
		}
		health["redis"] = client
		return redisstore.New(client.Client), health, func() { _ = client.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// closablePublisher adapts the optional Kafka sink to the resolver's audit
// port. With no brokers configured every call is a no-op.
type closablePublisher struct {
	kafka *publisher.Kafka
}

func (p *closablePublisher) Emit(ctx context.Context, event audit.Event) error {
	if p.kafka == nil {
		return nil
	}
	return p.kafka.Emit(ctx, event)
}

func (p *closablePublisher) Close(ctx context.Context) error {
	if p.kafka == nil {
		return nil
	}
	return p.kafka.Close(ctx)
}

func buildAudit(ctx context.Context, cfg config.Config) (*closablePublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return &closablePublisher{}, nil
	}
	kafka, err := publisher.NewKafka(ctx, cfg.Kafka.Brokers,
		publisher.WithTopic(cfg.Kafka.Topic))
	if err != nil {
		return nil, err
	}
	return &closablePublisher{kafka: kafka}, nil
}

type pingChecker struct{ db *sql.DB }

func (p pingChecker) Health(ctx context.Context) error { return p.db.PingContext(ctx) }
