package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/doctranslate/internal/api"
	"github.com/timmy/doctranslate/internal/api/middleware"
	"github.com/timmy/doctranslate/internal/config"
	"github.com/timmy/doctranslate/internal/logger"
	"github.com/timmy/doctranslate/internal/notify"
	"github.com/timmy/doctranslate/internal/refresh"
	"github.com/timmy/doctranslate/internal/repository"
	"github.com/timmy/doctranslate/internal/storage"
	"github.com/timmy/doctranslate/internal/translator"
	"github.com/timmy/doctranslate/internal/upload"
	"golang.org/x/sync/errgroup"
)

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	journal := repository.NewSubmissionRepository(db)

	// Initialize staging storage (local, MinIO, R2, S3)
	store, err := storage.New(storage.Config{
		Type:      storage.Type(cfg.Storage.Type),
		LocalDir:  cfg.Storage.LocalDir,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if b, ok := store.(bucketEnsurer); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}
	stager := storage.NewStager(store, storage.StagerConfig{
		Prefix:     cfg.Storage.Prefix,
		MaxSize:    cfg.Form.MaxFileSize,
		Extensions: cfg.Form.AllowedExtensions,
	})

	client := translator.NewClient(translator.Config{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Timeout: cfg.Translator.Timeout,
	})

	queue := notify.NewQueue(
		notify.WithTTL(cfg.Notifications.TTL),
		notify.WithLogger(appLogger),
	)
	coord := refresh.New(client, refresh.WithLogger(appLogger))
	trigger := refresh.NewTrigger()

	form := upload.NewForm(upload.FormConfig{
		Transport: client,
		Files:     stager,
		Notifier:  queue,
		Refresh:   trigger,
		Journal:   journal,
		FromLang:  cfg.Form.DefaultFromLang,
		ToLang:    cfg.Form.DefaultToLang,
	})

	router := api.SetupRouter(api.Deps{
		Documents:     coord,
		Notifications: queue,
		Form:          form,
		Prompts:       client,
		Journal:       journal,
		MaxFileSize:   stager.MaxSize(),
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Logger: appLogger,
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return coord.Run(gctx, cfg.Refresh.PollInterval, trigger)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		coord.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.WithError(err).Fatal("Server stopped with error")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	appLogger.Info("Server exited")
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 5 * time.Second
}
