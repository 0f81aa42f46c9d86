// Package server assembles the gateway from its components.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/warden-db/warden/cmd/warden/config"
	"github.com/warden-db/warden/cmd/warden/middleware"
	"github.com/warden-db/warden/pkg/handlers"
	"github.com/warden-db/warden/pkg/infrastructure/metrics"
	"github.com/warden-db/warden/pkg/repositories/authadmin"
	"github.com/warden-db/warden/pkg/repositories/management"
	"github.com/warden-db/warden/pkg/repositories/postgres"
	"github.com/warden-db/warden/pkg/services"
)

// Gateway is the assembled gateway server.
type Gateway struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool          *pgxpool.Pool
	ledger        services.ConfirmationLedger
	httpServer    *http.Server
	metricsServer *metrics.Server
}

// New builds the gateway: repositories, services, handlers, middleware.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Gateway, error) {
	var collector metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
	} else {
		collector = metrics.NewNoOpCollector()
	}
	svcMetrics := newServiceMetrics(collector)

	pool, err := postgres.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	executor := postgres.NewExecutor(pool, logger)
	migrations := postgres.NewMigrationLedger(pool, logger)

	registry := services.NewSafetyRegistry(newServiceLogger(logger, "safety-registry"))
	ledger := services.NewConfirmationLedger(
		cfg.Confirmation.TTL, cfg.Confirmation.SweepInterval,
		newServiceLogger(logger, "confirmation-ledger"), svcMetrics)
	gate := services.NewAuthorizationGate(registry, ledger,
		newServiceLogger(logger, "gate"), svcMetrics)

	queryManager := services.NewQueryManager(executor, migrations,
		services.NewSQLClassifier(), gate,
		newServiceLogger(logger, "query-manager"), svcMetrics)

	managementClient := management.NewClient(
		cfg.Management.BaseURL, cfg.Management.AccessToken, cfg.Management.Timeout, logger)
	managementManager := services.NewManagementManager(managementClient,
		services.NewAPIClassifier(), gate, cfg.Management.ProjectRef,
		newServiceLogger(logger, "management-manager"), svcMetrics)

	sdkDispatcher := authadmin.NewDispatcher(
		cfg.AuthURL(), cfg.SDK.ServiceRoleKey, cfg.SDK.Timeout, logger)
	sdkManager := services.NewSDKManager(sdkDispatcher,
		services.NewSDKClassifier(), gate,
		newServiceLogger(logger, "sdk-manager"), svcMetrics)

	handler := handlers.NewGatewayHandler(queryManager, managementManager, sdkManager, registry, logger)

	router := mux.NewRouter()
	router.Use(middleware.NewRecoveryMiddleware(logger).Handler)
	router.Use(middleware.NewLoggingMiddleware(logger).Handler)
	if cfg.Auth.Enabled {
		router.Use(middleware.NewAuthMiddleware(cfg.Auth, logger).Handler)
	}
	handler.Register(router)

	g := &Gateway{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		ledger: ledger,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	if cfg.Metrics.Enabled {
		g.metricsServer = metrics.NewServer(cfg.Metrics.Address)
	}
	return g, nil
}

// Start runs the HTTP server and, when enabled, the metrics server. Blocks
// until the HTTP server stops.
func (g *Gateway) Start() error {
	if g.metricsServer != nil {
		go func() {
			g.logger.Info().Str("address", g.cfg.Metrics.Address).Msg("Metrics server starting")
			if err := g.metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				g.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	g.logger.Info().Str("address", g.cfg.Server.Address).Msg("Gateway listening")
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.httpServer.Shutdown(ctx)

	if g.metricsServer != nil {
		_ = g.metricsServer.Stop()
	}
	g.ledger.Stop()
	g.pool.Close()

	return err
}
