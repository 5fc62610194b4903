package main

import (
	"bytes"
	"context"
	"flag"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/syllabuzz/syllabuzz/internal/config"
	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/extractor"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
	"github.com/syllabuzz/syllabuzz/internal/service"
	"github.com/syllabuzz/syllabuzz/internal/storage"
)

func main() {
	var (
		dir         = flag.String("dir", "", "directory of PDF files to ingest")
		file        = flag.String("file", "", "single PDF file to ingest")
		unitID      = flag.String("unit", "", "unit ID the documents belong to")
		facultyCode = flag.String("faculty", "", "faculty code")
		docType     = flag.String("type", domain.DocTypeNotes, "document type: notes or pastpaper")
		year        = flag.Int("year", 0, "exam year for past papers")
		extract     = flag.Bool("extract-questions", false, "also extract questions from past papers")
		force       = flag.Bool("force", false, "re-ingest files whose content hash is already registered")
		configPath  = flag.String("config", os.Getenv("CONFIG_PATH"), "config file path")
	)
	flag.Parse()

	if *unitID == "" {
		stdlog.Fatal("-unit is required")
	}
	if *dir == "" && *file == "" {
		stdlog.Fatal("either -dir or -file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "syllabuzz-ingest",
		Environment: cfg.Log.Environment,
		LogFile:     cfg.Log.File,
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
	if known, err := unitService.Exists(ctx, *unitID); err != nil {
		log.WithError(err).Fatal("Failed to check unit")
	} else if !known {
		log.WithField(logger.FieldUnitID, *unitID).Warn("Unit is not registered; ingesting anyway")
	}

	runner := &ingestRunner{
		ingest:    ingestService,
		questions: questionService,
		logger:    log,
		unitID:    *unitID,
		faculty:   *facultyCode,
		docType:   *docType,
		year:      *year,
		extract:   *extract,
		force:     *force,
	}

	paths, err := collectPDFs(*dir, *file)
	if err != nil {
		log.WithError(err).Fatal("Failed to collect input files")
	}
	if len(paths) == 0 {
		log.Warn("No PDF files found")
		return
	}

	ok, failed := 0, 0
	for _, path := range paths {
		if err := runner.ingestFile(ctx, path); err != nil {
			log.WithField("file", path).WithError(err).Error("Ingestion failed")
			failed++
			continue
		}
		ok++
	}

	log.WithFields(logger.Fields{
		"ingested": ok,
		"failed":   failed,
	}).Info("Ingestion run completed")
	if failed > 0 {
		os.Exit(1)
	}
}

type ingestRunner struct {
	ingest    *service.IngestService
	questions *service.QuestionService
	logger    *logger.Logger
	unitID    string
	faculty   string
	docType   string
	year      int
	extract   bool
	force     bool
}

func (r *ingestRunner) ingestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc, err := r.ingest.Ingest(ctx, data, &service.Metadata{
		UnitID:      r.unitID,
		FacultyCode: r.faculty,
		Type:        r.docType,
		FileName:    filepath.Base(path),
	}, &service.IngestOptions{Force: r.force})
	if err != nil {
		return err
	}

	r.logger.WithFields(logger.Fields{
		logger.FieldDocumentID: doc.ID,
		"file":                 path,
		"pages":                doc.PageCount,
		"chunks":               doc.ChunkCount,
	}).Info("Document ingested")

	if r.extract && r.docType == domain.DocTypePastPaper {
		r.extractQuestions(ctx, data, doc, path)
	}
	return nil
}

// extractQuestions pulls numbered questions out of an ingested past paper
// and records each through the dedup pipeline. Failures are logged per
// question; a bad page never aborts the run.
func (r *ingestRunner) extractQuestions(ctx context.Context, data []byte, doc *domain.Document, path string) {
	ext, err := extractor.Extract(filepath.Base(path), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		r.logger.WithField("file", path).WithError(err).Error("Failed to re-read pages for question extraction")
		return
	}

	found, added, duplicates := 0, 0, 0
	for page := 1; page <= ext.PageCount; page++ {
		for _, q := range service.ExtractQuestions(ext.Pages[page], page) {
			found++
			result, err := r.questions.AddQuestion(ctx, &service.AddQuestionRequest{
				Text:       q.Text,
				UnitID:     r.unitID,
				SourceType: domain.QuestionSourceExam,
				SourceID:   doc.ID,
				Year:       r.year,
			})
			if err != nil {
				r.logger.WithField("question", q.Number).WithError(err).Error("Failed to record question")
				continue
			}
			if result.Duplicate {
				duplicates++
			} else {
				added++
			}
		}
	}

	r.logger.WithFields(logger.Fields{
		logger.FieldDocumentID: doc.ID,
		"found":                found,
		"added":                added,
		"duplicates":           duplicates,
	}).Info("Question extraction completed")
}

func collectPDFs(dir, file string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
