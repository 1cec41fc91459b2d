package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chyax98/recall/infrastructure/config"
	"github.com/chyax98/recall/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Bring the schema up to date before serving traffic
	if err := container.Migrator.Migrate(ctx); err != nil {
		container.Logger.Fatal("Schema migration failed", zap.Error(err))
	}

	// Hot reload in development: follow log level changes without restart
	watcher, err := config.NewConfigWatcher(cfg, container.Logger)
	if err != nil {
		container.Logger.Fatal("Config watcher failed", zap.Error(err))
	}
	watcher.OnChange(func(updated *config.Config) {
		if level, err := zapcore.ParseLevel(updated.LogLevel); err == nil {
			container.LogLevel.SetLevel(level)
		}
	})

	handler := container.Router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.DatabasePath),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	watcher.Stop()

	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("Cleanup error: %v", err)
	}

	log.Println("Server stopped")
}
