package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stateset/commerce-engine/internal/cache"
	"github.com/stateset/commerce-engine/internal/checkout"
	"github.com/stateset/commerce-engine/internal/config"
	"github.com/stateset/commerce-engine/internal/customer"
	"github.com/stateset/commerce-engine/internal/eventbus"
	grpcHandler "github.com/stateset/commerce-engine/internal/handler/grpc"
	httpHandler "github.com/stateset/commerce-engine/internal/handler/http"
	"github.com/stateset/commerce-engine/internal/idempotency"
	"github.com/stateset/commerce-engine/internal/ledger"
	"github.com/stateset/commerce-engine/internal/messaging"
	"github.com/stateset/commerce-engine/internal/observability"
	"github.com/stateset/commerce-engine/internal/order"
	"github.com/stateset/commerce-engine/internal/payment"
	"github.com/stateset/commerce-engine/internal/reservation"
	"github.com/stateset/commerce-engine/internal/resilience"
	"github.com/stateset/commerce-engine/internal/returns"
	"github.com/stateset/commerce-engine/internal/taxfulfillment"
)

// exit codes, per the deployment runbook: 0 clean shutdown, 1 config
// error, 2 unrecoverable startup failure (database, Kafka, cache).
const (
	exitOK            = 0
	exitConfigError   = 1
	exitStartupFailed = 2
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(exitConfigError)
	}

	logger := initLogger(cfg.Logging)
	logger.Info().
		Str("service", cfg.Service.Name).
		Str("environment", cfg.Service.Environment).
		Msg("commerce engine starting")

	metrics := observability.NewMetrics()

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		os.Exit(exitStartupFailed)
	}
	defer dbPool.Close()
	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("failed to ping database")
		os.Exit(exitStartupFailed)
	}
	logger.Info().Msg("database connection established")

	cacheClient, err := cache.New(cfg.Cache.URL, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to cache")
		os.Exit(exitStartupFailed)
	}
	defer cacheClient.Close()
	logger.Info().Msg("cache connection established")

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Compression = sarama.CompressionSnappy

	kafkaProducer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaConfig)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Kafka producer")
		os.Exit(exitStartupFailed)
	}
	defer kafkaProducer.Close()
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka producer initialized")

	// Repositories
	orderRepo := order.NewPostgresRepository(dbPool, logger)
	outboxRepo := messaging.NewPostgresOutboxRepository(dbPool, logger)
	ledgerRepo := ledger.NewPostgresRepository(dbPool, logger)
	paymentRepo := payment.NewPostgresRepository(dbPool, logger)
	returnRepo := returns.NewPostgresRepository(dbPool, logger)
	customerRepo := customer.NewPostgresRepository(dbPool, logger)

	idempotencyRepo := idempotency.NewPostgresStore(dbPool, logger)
	idempotencyCacheStore := idempotency.NewRedisStore(cacheClient, logger)

	// Background infra: the bounded in-process event bus fans out every
	// outbox event that reached Kafka to same-process listeners (e.g. a
	// future cache invalidator) without a Kafka round trip; nothing
	// subscribes yet, so Publish is currently a no-op fan-out.
	bus := eventbus.New(256, logger)

	// Domain services
	ledgerSvc := ledger.NewService(ledgerRepo, dbPool, metrics, logger)
	reservationCoordinator := reservation.NewCoordinator(dbPool, ledgerSvc, logger)

	breaker := resilience.NewCircuitBreaker("payment_provider", logger)
	var processor payment.ProcessorClient
	if cfg.Payment.APIKey != "" {
		processor = payment.NewHTTPProcessorClient(cfg.Payment.ProviderURL, cfg.Payment.APIKey, breaker)
	} else {
		processor = payment.NewStubProcessorClient()
	}
	providers := []payment.Provider{
		{Name: "primary", Active: true, Currencies: map[string]bool{"USD": true, "EUR": true, "GBP": true}, Rate: 0.029, Fixed: 30},
		{Name: "secondary", Active: true, Currencies: map[string]bool{"USD": true}, Rate: 0.025, Fixed: 25},
	}
	vaultStore := payment.NewVaultStore(cacheClient)
	paymentSvc := payment.NewService(dbPool, paymentRepo, vaultStore, processor, providers, metrics, logger)

	orderSvc := order.NewService(dbPool, orderRepo, outboxRepo, reservationCoordinator, paymentSvc, idempotencyRepo, metrics, logger)

	taxBreaker := resilience.NewCircuitBreaker("tax_provider", logger)
	taxPlugin := taxfulfillment.NewTaxPlugin(cfg.Tax.ProviderURL, 0.0875, taxBreaker)
	fulfillmentPlugin := taxfulfillment.NewFulfillmentPlugin("USD", 500, 1500)

	checkoutStore := checkout.NewStore(cacheClient, cfg.Checkout.SessionTTL, logger)
	checkoutSvc := checkout.NewService(
		dbPool,
		checkoutStore,
		reservationCoordinator,
		orderSvc,
		paymentSvc,
		outboxRepo,
		idempotencyCacheStore,
		taxPlugin,
		fulfillmentPlugin,
		metrics,
		logger,
	)

	returnSvc := returns.NewService(dbPool, returnRepo, orderSvc, ledgerSvc, outboxRepo, metrics, logger)
	customerSvc := customer.NewService(dbPool, customerRepo, outboxRepo, logger)

	// HTTP server
	handler := httpHandler.NewHandler(
		orderSvc,
		checkoutSvc,
		paymentSvc,
		vaultStore,
		returnSvc,
		customerSvc,
		idempotencyCacheStore,
		cfg.Idempotency.TTL,
		metrics,
		logger,
	)
	readyCheck := httpHandler.ReadyHandler(dbPool, kafkaProducer, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler.Routes(readyCheck),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// gRPC server: health-checking surface only (see internal/handler/grpc).
	grpcServer, grpcHealthSrv := grpcHandler.NewServer(logger, metrics)

	// Outbox publisher
	publisher := messaging.NewOutboxPublisher(outboxRepo, kafkaProducer, bus, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publisher.Start(ctx)
	logger.Info().Msg("outbox publisher started")

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			logger.Error().Err(err).Msg("failed to listen on gRPC port")
			os.Exit(exitStartupFailed)
		}
		logger.Info().Int("port", cfg.GRPC.Port).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server failed")
		}
	}()

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	grpcHandler.SetNotServing(shutdownCtx, grpcHealthSrv)
	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("HTTP server stopped")

	logger.Info().Msg("shutdown complete")
	os.Exit(exitOK)
}

// initLogger initializes the structured logger
func initLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Caller().
			Logger()
	}
	return logger
}
