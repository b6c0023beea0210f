package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stepangreenberg/order-processor/internal/platform/broker"
	"github.com/stepangreenberg/order-processor/internal/platform/config"
	"github.com/stepangreenberg/order-processor/internal/platform/consumer"
	"github.com/stepangreenberg/order-processor/internal/platform/dbschema"
	"github.com/stepangreenberg/order-processor/internal/platform/logging"
	"github.com/stepangreenberg/order-processor/internal/platform/outbox"
	"github.com/stepangreenberg/order-processor/internal/processorservice/application"
	"github.com/stepangreenberg/order-processor/internal/processorservice/infrastructure/postgres"
	processortransport "github.com/stepangreenberg/order-processor/internal/processorservice/transport/http"
	"github.com/stepangreenberg/order-processor/migrations/processorservice"
)

func main() {
	cfg, err := config.Load("processorservice", ":8081")
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.ServiceName)
	log := logging.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	if err := dbschema.Apply(ctx, pool, migrations.FS); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	conn, err := broker.Connect(cfg.BrokerURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to broker")
	}
	defer conn.Close()

	repo := postgres.New()
	policy := application.DefaultPolicy{EmbargoSKUs: cfg.EmbargoSKUs, SuccessProb: cfg.ProcessingSuccessProb}
	handler := &application.HandleOrderCreatedHandler{Repo: repo, Policy: policy}

	pipeline := &consumer.Pipeline{
		Pool:       pool,
		Ch:         conn.Channel,
		Queue:      broker.OrderCreatedQueue,
		RoutingKey: broker.OrderCreatedRoutingKey,
		Prefetch:   cfg.ConsumerPrefetch,
		Handler:    handler,
		MaxRetries: cfg.MaxRetries,
	}

	// The publisher gets its own channel, separate from conn.Channel:
	// NewPublisher puts it in publisher-confirm mode, and a confirm-mode channel must not be
	// shared with the consumer pipeline's retry republish, or the
	// pipeline's confirmations get delivered to the publisher's
	// notify listener and misread as acks for outbox rows.
	publisherCh, err := conn.Connection.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("open outbox publisher channel")
	}
	defer publisherCh.Close()

	publisher, err := outbox.NewPublisher(pool, publisherCh, cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("init outbox publisher")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil {
			log.Error().Err(err).Msg("consumer pipeline stopped")
		}
	}()

	handlers := &processortransport.Handlers{Pool: pool, BrokerConn: conn}
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: processortransport.NewRouter(handlers),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	cancel()
	wg.Wait()
}
