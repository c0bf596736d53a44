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

	"myflex/internal/app"
	"myflex/internal/config"
	"myflex/internal/httpapi"
	"myflex/internal/logging"
	"myflex/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Init(logging.Config{Debug: cfg.Debug, LogDir: cfg.LogDir, Stderr: true}); err != nil {
		return err
	}

	ctx := context.Background()

	// 2. Open stores, LLM and verifier
	application, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	// 3. HTTP API, plus the Telegram webhook when a bot token is configured
	srvHandler := httpapi.NewServer(application)
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, application)
		if err != nil {
			return err
		}
		srvHandler.Mount("/webhook", bot)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srvHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 4. Start with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logging.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logging.Info("server exiting")
	return nil
}
