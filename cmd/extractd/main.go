package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/arampall/intelligent-document-extraction/internal/async"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/export"
	"github.com/arampall/intelligent-document-extraction/internal/ingest"
	"github.com/arampall/intelligent-document-extraction/internal/model/gemini"
	"github.com/arampall/intelligent-document-extraction/internal/ocr"
	"github.com/arampall/intelligent-document-extraction/internal/pipeline"
	"github.com/arampall/intelligent-document-extraction/internal/prep"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
	"github.com/arampall/intelligent-document-extraction/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	profilesRepo := repository.NewProfileRepository(db)
	docsRepo := repository.NewDocumentRepository(db)
	jobsRepo := repository.NewJobRepository(db)
	extractionsRepo := repository.NewExtractionRepository(db)

	preproc := prep.NewPreprocessor(prep.Config{
		Pdftoppm:         cfg.Prep.Pdftoppm,
		Magick:           cfg.Prep.Magick,
		HeicConverter:    cfg.Prep.HeicConverter,
		DPI:              cfg.Prep.DPI,
		MaxPages:         cfg.Prep.MaxPages,
		Enhance:          cfg.Prep.EnhanceImages,
		ArtifactCacheDir: cfg.Prep.ArtifactCacheDir,
	}, logger)

	ocrExt := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.Prep.Tesseract,
		TesseractLang:       cfg.Prep.TesseractLang,
		TessdataDir:         cfg.Prep.TessdataDir,
		PSM:                 6,
		EnableTSVConfidence: true,
		PageConcurrency:     cfg.Prep.PageConcurrency,
	}, logger)

	extractor := gemini.NewClient(gemini.Config{
		BaseURL:         cfg.Model.BaseURL,
		Model:           cfg.Model.Model,
		APIKey:          cfg.Model.APIKey,
		Temperature:     cfg.Model.Temperature,
		Timeout:         cfg.Model.Timeout,
		MaxRetries:      cfg.Model.MaxRetries,
		MinInterval:     cfg.Model.MinInterval,
		MaxOutputTokens: cfg.Model.MaxOutputTokens,
		MaxImageMB:      cfg.Model.MaxImageMB,
		LenientOptional: cfg.Model.LenientOptional,
	}, logger)

	processor := pipeline.NewProcessor(pipeline.Config{
		ModelName:        cfg.Model.Model,
		DefaultCurrency:  "USD",
		Timezone:         "UTC",
		ReviewConfidence: cfg.Pipeline.MinConfidence,
	}, preproc, ocrExt, extractor, profilesRepo, docsRepo, jobsRepo, extractionsRepo, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	ingestor := ingest.NewFSIngestor(docsRepo, logger)
	exporter := export.NewService(extractionsRepo, docsRepo, logger)

	srv := server.New(cfg.Server, profilesRepo, docsRepo, jobsRepo, extractionsRepo,
		ingestor, queue, exporter, logger)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
