package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MegaGrindStone/faey-assistant/internal/handlers"
	"github.com/MegaGrindStone/faey-assistant/internal/middleware"
	"github.com/MegaGrindStone/faey-assistant/internal/router"
	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("error getting user config dir: %w", err)
	}
	appDir := filepath.Join(cfgDir, "faey")

	cfgPath := flag.String("config", filepath.Join(appDir, "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	cfg, err := loadConfig(*cfgPath, appDir)
	if err != nil {
		return err
	}

	level, _ := cfg.logLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	assistant := services.NewLazy(func() (services.Assistant, error) {
		logger.Info("Initializing provider")
		return cfg.assistant(logger)
	})

	images, err := services.NewImageDir(cfg.ImagesDir, "/generated-images")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("error creating data directory: %w", err)
	}
	boltDB, err := services.NewBoltDB(filepath.Join(cfg.DataDir, "store.db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := boltDB.Close(); err != nil {
			logger.Error("Failed to close store", slog.String("error", err.Error()))
		}
	}()

	m, err := handlers.NewMain(assistant, images, boltDB, handlers.Options{
		SystemPrompt: cfg.SystemPrompt,
		PersonaRole:  cfg.personaRole(),
		HistoryLimit: cfg.HistoryLimit,
	}, logger)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go limiter.Cleanup(cleanupCtx)

	h, err := router.New(m, router.Options{
		ImagesDir:      images.Dir(),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("error", err.Error()))
			}
		}
	}

	return nil
}

func loadConfig(path, dataDir string) (config, error) {
	cfgFile, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}

	cfg.applyDefaults(dataDir)
	if err := cfg.validate(); err != nil {
		return config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
