// @title           Dispatch API
// @version         1.0
// @description     Coordinates delivery orders between customers and delivery agents.
// @BasePath        /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Bearer token from POST /login, sent as: Bearer <token>
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/api"
	"github.com/deliverydz/dispatch-api/internal/api/handler"
	"github.com/deliverydz/dispatch-api/internal/core/ports"
	"github.com/deliverydz/dispatch-api/internal/core/service"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/db/file"
	mongostore "github.com/deliverydz/dispatch-api/internal/infrastructure/db/mongo"
	redisstore "github.com/deliverydz/dispatch-api/internal/infrastructure/db/redis"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/notify"
	"github.com/deliverydz/dispatch-api/internal/infrastructure/queue"
	"github.com/deliverydz/dispatch-api/internal/pkg/config"
	"github.com/deliverydz/dispatch-api/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "dispatch-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readiness := map[string]handler.Pinger{}

	// --- Record store ---
	var (
		orders ports.OrderRepository
		users  ports.UserRepository
	)
	switch cfg.Store.Backend {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		orderRepo := mongostore.NewOrderRepository(db)
		if err := orderRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		orders, users = orderRepo, mongostore.NewUserRepository(db)
		readiness["mongodb"] = mongostore.Ping(client)
	default:
		store, err := file.Open(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		orders, users = file.NewOrderRepository(store), file.NewUserRepository(store)
		readiness["file_store"] = store.Ping
	}
	log.Info().Str("backend", cfg.Store.Backend).Msg("record store ready")

	// --- Idempotency (optional) ---
	var idempotency ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		idempotency = redisstore.NewIdempotencyStore(rdb)
		readiness["redis"] = redisstore.Ping(rdb)
	}

	// --- Notifications ---
	var notifier ports.Notifier = notify.NewLogNotifier(logger.Component("notify"))
	if cfg.Notify.Driver == config.NotifyAMQP {
		amqpNotifier, err := notify.DialAMQP(notify.AMQPConfig{URL: cfg.Notify.AMQPURL, Exchange: cfg.Notify.Exchange})
		if err != nil {
			return err
		}
		defer func() { _ = amqpNotifier.Close() }()
		notifier = amqpNotifier
		readiness["amqp"] = amqpNotifier.Ping
	}

	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, notifier, logger.Component("dispatcher"))
	dispatcher.Start(context.Background())

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.JWTSecret, service.TokenTTL)
	e := api.NewRouter(api.Dependencies{
		Auth:       service.NewAuthService(users, tokens, logger.Component("auth")),
		Orders:     service.NewOrderService(orders, users, dispatcher, idempotency, logger.Component("orders")),
		Delivery:   service.NewDeliveryService(orders, users, logger.Component("delivery")),
		Tokens:     tokens,
		Log:        logger.Component("http"),
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Readiness:  readiness,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			dispatcher.Stop()
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Requests are drained; flush notifications they queued.
	dispatcher.Stop()
	log.Info().Msg("server stopped cleanly")
	return nil
}
