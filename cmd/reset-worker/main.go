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
	httpapi "github.com/distribuidora-pyg/workers-go/internal/http"
	"github.com/distribuidora-pyg/workers-go/internal/logging"
	"github.com/distribuidora-pyg/workers-go/internal/mail"
	"github.com/distribuidora-pyg/workers-go/internal/messaging"
	"github.com/distribuidora-pyg/workers-go/internal/reset"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("reset-worker", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- AMQP ---
	conn, err := messaging.Dial(cfg.Rabbit.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("broker connect")
	}
	defer conn.Close()

	mailer := mail.NewSMTPMailer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	handler, err := reset.NewHandler(mailer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("load reset template")
	}

	err = messaging.StartConsumer(ctx, conn, messaging.ConsumerConfig{
		Queue: cfg.Rabbit.ResetQueue,
		Tag:   "reset-worker",
	}, handler.Handle, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("start consumer")
	}

	// --- HTTP ---
	h := httpapi.NewHandler(
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
