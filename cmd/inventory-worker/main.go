package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distribuidora-pyg/workers-go/internal/config"
	"github.com/distribuidora-pyg/workers-go/internal/db"
	httpapi "github.com/distribuidora-pyg/workers-go/internal/http"
	"github.com/distribuidora-pyg/workers-go/internal/logging"
	"github.com/distribuidora-pyg/workers-go/internal/messaging"
	"github.com/distribuidora-pyg/workers-go/internal/restock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("inventory-worker", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.DSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("db migrate")
		}
	}

	// --- AMQP ---
	conn, err := messaging.Dial(cfg.Rabbit.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("broker connect")
	}
	defer conn.Close()

	repo := restock.NewRepository(pool)
	pub := messaging.NewResponsePublisher(conn, cfg.Rabbit.ResponseQueue)
	handler := restock.NewHandler(repo, pub, logger)

	// Prefetch 1: one in-flight transaction per worker instance.
	err = messaging.StartConsumer(ctx, conn, messaging.ConsumerConfig{
		Queue:    cfg.Rabbit.RestockQueue,
		Tag:      "inventory-worker",
		Prefetch: 1,
	}, handler.Handle, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("start consumer")
	}

	// --- HTTP ---
	h := httpapi.NewHandler(
		httpapi.Check{Name: "postgres", Probe: pool.Ping},
		httpapi.Check{Name: "rabbitmq", Probe: func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}},
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("fatal error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Info().Msg("shutdown complete")
}
