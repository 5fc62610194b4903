package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syllabuzz/syllabuzz/internal/api"
	"github.com/syllabuzz/syllabuzz/internal/config"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
	"github.com/syllabuzz/syllabuzz/internal/service"
	"github.com/syllabuzz/syllabuzz/internal/storage"
)

func main() {
	// CONFIG_PATH overrides the default config lookup for deployments.
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "syllabuzz-api",
		Environment: cfg.Log.Environment,
		LogFile:     cfg.Log.File,
		MaxSizeMB:   100,
		MaxBackups:  5,
		MaxAgeDays:  14,
	})
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	documentRepo := repository.NewDocumentRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	unitRepo := repository.NewUnitRepository(db)

	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
		UpsertBatchSize: cfg.Ingest.UpsertBatchSize,
		Timeout:         cfg.Qdrant.Timeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	ctx := context.Background()
	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	if s3, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			log.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	embeddingService := service.NewEmbeddingService(&service.EmbeddingServiceConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})

	ingestService, err := service.NewIngestService(
		documentRepo,
		qdrantRepo,
		objectStorage,
		embeddingService,
		log,
		&service.IngestServiceConfig{
			ChunkSize:       cfg.Ingest.ChunkSize,
			OverlapFraction: cfg.Ingest.OverlapFraction,
			ContextWindow:   cfg.Ingest.ContextWindow,
			MaxFileSizeMB:   cfg.Ingest.MaxFileSizeMB,
		},
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize ingest service")
	}

	searchService := service.NewSearchService(
		documentRepo,
		qdrantRepo,
		embeddingService,
		log,
		&service.SearchServiceConfig{
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			ScoreThreshold: cfg.Search.ScoreThreshold,
		},
	)

	questionService := service.NewQuestionService(
		questionRepo,
		qdrantRepo,
		embeddingService,
		log,
		&service.QuestionServiceConfig{
			DuplicateThreshold: cfg.Dedup.DuplicateThreshold,
			RelatedThreshold:   cfg.Dedup.RelatedThreshold,
			RelatedTopK:        cfg.Dedup.RelatedTopK,
		},
	)

	unitService := service.NewUnitService(unitRepo, documentRepo, questionRepo, log)

	router := api.SetupRouter(ingestService, searchService, questionService, unitService, log, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
	log.Info("Server stopped")
}
