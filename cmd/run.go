package cmd

import (
	"context"
	"fmt"
	"time"

	"socialbets/application"
	"socialbets/config"
	"socialbets/database"
	"socialbets/domain/interfaces"
	"socialbets/infrastructure"
	"socialbets/infrastructure/logging"
	"socialbets/infrastructure/observability"
	"socialbets/infrastructure/ops"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the resolution worker
func Run(ctx context.Context) error {
	cfg := config.Get()

	logCloser, err := logging.Configure(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer logCloser.Close()

	log.WithField("environment", cfg.Environment).Info("Starting social bets resolution worker...")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize NATS; events are dropped when the broker is unreachable
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	var eventPublisher interfaces.EventPublisher
	if err := natsClient.Connect(ctx); err != nil {
		log.WithError(err).Warn("Failed to connect to NATS, domain events will not be published")
		eventPublisher = infrastructure.NewNoopEventPublisher()
	} else {
		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureBetEventStream(natsClient); err != nil {
			log.WithError(err).Warn("Failed to ensure bet event stream")
		}
		eventPublisher = natsPublisher
	}

	dispatcher, err := infrastructure.NewAsyncEventDispatcher(eventPublisher, cfg.NotificationWorkers)
	if err != nil {
		return fmt.Errorf("failed to create event dispatcher: %w", err)
	}

	// Initialize the credit ledger producer
	kafkaWriter := infrastructure.NewKafkaWriter(cfg.KafkaBrokers, cfg.LedgerTopic)
	ledger := infrastructure.NewKafkaCreditLedger(kafkaWriter, cfg.LedgerTopic)

	// Initialize the resolver roster cache
	var roster application.RosterWrapper
	if cfg.RedisAddr != "" {
		rdb, err := infrastructure.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to Redis, resolver rosters will not be cached")
		} else {
			defer rdb.Close()
			roster = infrastructure.NewRosterCache(rdb, time.Duration(cfg.RosterCacheTTLSeconds)*time.Second)
		}
	}

	metrics := observability.GetMetrics()
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, dispatcher)
	commands := application.NewBetCommands(
		uowFactory,
		ledger,
		roster,
		interfaces.ZeroVotePolicy(cfg.ZeroVotePolicy),
		metrics,
	)

	// Start the sweeper
	sweeper, err := application.NewSweeper(uowFactory, commands, application.SweeperConfig{
		CloseInterval:     time.Duration(cfg.CloseSweepIntervalSeconds) * time.Second,
		ResolveInterval:   time.Duration(cfg.ResolveSweepIntervalSeconds) * time.Second,
		ReconcileInterval: time.Duration(cfg.ReconcileSweepIntervalSeconds) * time.Second,
		BatchSize:         cfg.ReconcileBatchSize,
	}, metrics)
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	// Start operator endpoints
	health := func(ctx context.Context) error {
		return db.Ping(ctx)
	}
	opsServer := ops.NewServer(cfg.OpsHTTPAddr, commands, health)
	opsServer.Start()

	grpcHealth := ops.NewGRPCHealthServer(cfg.OpsGRPCAddr, health, 10*time.Second)
	if err := grpcHealth.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gRPC health server: %w", err)
	}

	log.Info("Resolution worker is running")
	<-ctx.Done()

	log.Info("Shutting down resolution worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcHealth.Shutdown()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down operator HTTP server")
	}
	if err := sweeper.Stop(); err != nil {
		log.WithError(err).Error("Error stopping sweeper")
	}
	if err := dispatcher.Close(5 * time.Second); err != nil {
		log.WithError(err).Warn("Event dispatcher did not drain in time")
	}
	if err := natsClient.Close(); err != nil {
		log.WithError(err).Error("Error closing NATS connection")
	}
	if err := ledger.Close(); err != nil {
		log.WithError(err).Error("Error closing ledger producer")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
