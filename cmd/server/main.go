package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/analysis"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/api"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/repository"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/services"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/storage"
	"github.com/C3Techie/ai-doc-summarizer-service/pkg/logger"
	"github.com/C3Techie/ai-doc-summarizer-service/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(cfg, zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	collector := metrics.NewCollector()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, err := newBlobStore(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	analyzer, err := analysis.NewGeminiClient(ctx, cfg.Gemini, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize analysis client", zap.Error(err))
	}
	defer analyzer.Close()

	documentRepo := repository.NewDocumentRepository(database, zapLogger)
	userRepo := repository.NewUserRepository(database, zapLogger)

	authService := services.NewAuthService(userRepo, cfg.Auth, zapLogger, collector)
	documentService := services.NewDocumentService(documentRepo, blobs, analyzer, zapLogger, collector)

	router := api.NewRouter(cfg, zapLogger, collector, authService, documentService)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}

	if closer, ok := blobs.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			zapLogger.Warn("Blob store close failed", zap.Error(err))
		}
	}

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}

func newBlobStore(ctx context.Context, cfg *config.Configuration, zapLogger *zap.Logger) (storage.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendGCS:
		return storage.NewGCSStore(ctx, cfg.Storage.GCSBucket, cfg.Storage.OpTimeout, zapLogger)
	default:
		return storage.NewLocalStore(cfg.Storage.LocalDir, zapLogger)
	}
}
