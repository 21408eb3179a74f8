package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/api"
	"fleetwatch/internal/auth"
	"fleetwatch/internal/broadcast"
	"fleetwatch/internal/config"
	"fleetwatch/internal/db"
	"fleetwatch/internal/features"
	"fleetwatch/internal/health"
	"fleetwatch/internal/ingest"
	"fleetwatch/internal/logging"
	"fleetwatch/internal/ml"
	"fleetwatch/internal/mq"
	"fleetwatch/internal/repository"
	"fleetwatch/internal/rules"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the telemetry ingestion and health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideDBPool,
			ProvideRepository,
			ProvideBroadcastStore,
			ProvideMQConnection,
			ProvideAlertPublisher,
			ProvideThresholdSource,
			ProvideRuleEngine,
			ProvideExtractor,
			ProvidePredictor,
			ProvideAlertService,
			ProvideAuthorizer,
			ProvideIngestHandler,
			ProvideHealthAggregator,
			ProvideAPIServer,
		),
		fx.Invoke(startHTTPServer),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop cleanly: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}

// ProvideDBPool creates the database pool
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the repository
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideBroadcastStore creates the redis broadcast store
func ProvideBroadcastStore(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) *broadcast.Store {
	return broadcast.NewStore(lc, logger, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}

// ProvideMQConnection creates the RabbitMQ connection
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvideAlertPublisher creates the alert notification publisher
func ProvideAlertPublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (alerts.Notifier, error) {
	return mq.NewAlertPublisher(conn, cfg.RabbitMQ.AlertExchange, cfg.RabbitMQ.AlertRoutingKey, logger)
}

// ProvideThresholdSource creates the hot-reloadable threshold source
func ProvideThresholdSource() rules.ThresholdSource {
	return rules.NewEnvThresholds()
}

// ProvideRuleEngine creates the pattern rule engine
func ProvideRuleEngine(thresholds rules.ThresholdSource, logger *zap.Logger) *rules.Engine {
	return rules.NewEngine(thresholds, logger)
}

// ProvideExtractor creates the feature extractor
func ProvideExtractor(cfg *config.Config) *features.Extractor {
	return features.NewExtractor(cfg.ML.WindowSize)
}

// ProvidePredictor creates the failure predictor
func ProvidePredictor(cfg *config.Config, extractor *features.Extractor, logger *zap.Logger) *ml.Predictor {
	return ml.NewPredictor(cfg.ML.ArtifactPath, cfg.ML.ConfidenceThreshold, extractor, logger)
}

// ProvideAlertService creates the alert dedup and persistence service
func ProvideAlertService(
	engine *rules.Engine,
	predictor *ml.Predictor,
	repo *repository.Repository,
	notifier alerts.Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *alerts.Service {
	cooldown := time.Duration(cfg.Alerts.CooldownMinutes) * time.Minute
	return alerts.NewService(engine, predictor, repo, notifier, cooldown, logger)
}

// ProvideAuthorizer creates the vehicle visibility authorizer
func ProvideAuthorizer(repo *repository.Repository) *auth.Authorizer {
	return auth.NewAuthorizer(repo)
}

// ProvideIngestHandler creates the websocket handler
func ProvideIngestHandler(
	repo *repository.Repository,
	alertSvc *alerts.Service,
	broadcaster *broadcast.Store,
	authorizer *auth.Authorizer,
	cfg *config.Config,
	logger *zap.Logger,
) *ingest.Handler {
	return ingest.NewHandler(repo, alertSvc, broadcaster, authorizer, cfg.Ingest, logger)
}

// ProvideHealthAggregator creates the health aggregator
func ProvideHealthAggregator(repo *repository.Repository, thresholds rules.ThresholdSource, cfg *config.Config) *health.Aggregator {
	opts := health.Options{
		AlertLookback:     time.Duration(cfg.Health.AlertLookbackDays) * 24 * time.Hour,
		DueSoonHorizon:    time.Duration(cfg.Health.DueSoonDays) * 24 * time.Hour,
		RecentTempWindow:  time.Duration(cfg.Health.RecentTempHours) * time.Hour,
		EngineOnThreshold: time.Duration(cfg.Health.EngineOnThresholdSeconds) * time.Second,
	}
	return health.NewAggregator(repo, thresholds, opts)
}

// ProvideAPIServer creates the route table
func ProvideAPIServer(
	handler *ingest.Handler,
	aggregator *health.Aggregator,
	repo *repository.Repository,
	authorizer *auth.Authorizer,
	logger *zap.Logger,
) *api.Server {
	return api.NewServer(handler, aggregator, repo, authorizer, logger)
}

func startHTTPServer(lc fx.Lifecycle, server *api.Server, cfg *config.Config, logger *zap.Logger) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServicePort),
		Handler: server.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http server", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping http server")
			return httpServer.Shutdown(ctx)
		},
	})
}
