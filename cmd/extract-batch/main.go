package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/export"
	"github.com/arampall/intelligent-document-extraction/internal/ingest"
	"github.com/arampall/intelligent-document-extraction/internal/model/gemini"
	"github.com/arampall/intelligent-document-extraction/internal/ocr"
	"github.com/arampall/intelligent-document-extraction/internal/pipeline"
	"github.com/arampall/intelligent-document-extraction/internal/prep"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem       = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir         = flag.String("dir", "", "directory to process documents from (required)")
		docTypeStr  = flag.String("doc-type", "receipt", "document type: receipt or resume")
		out         = flag.String("out", "", "output file path (defaults next to --dir)")
		format      = flag.String("format", "xlsx", "output format: csv, json, or xlsx")
		profileName = flag.String("profile", "Local Batch", "profile name")
		fromStr     = flag.String("from", "", "from date YYYY-MM-DD")
		toStr       = flag.String("to", "", "to date YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	docType, ok := constants.ParseDocType(*docTypeStr)
	if !ok {
		printError("Error: --doc-type must be receipt or resume\n")
		os.Exit(1)
	}
	switch *format {
	case "csv", "json", "xlsx":
	default:
		printError("Error: --format must be csv, json, or xlsx\n")
		os.Exit(1)
	}
	if *out == "" {
		name := strings.ToLower(string(docType)) + "s." + *format
		*out = filepath.Join(filepath.Dir(*dir), name)
	}

	var fromDate, toDate string
	if *fromStr != "" {
		if _, err := time.Parse("2006-01-02", *fromStr); err != nil {
			printError("Error: invalid --from date, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		fromDate = *fromStr
	}
	if *toStr != "" {
		if _, err := time.Parse("2006-01-02", *toStr); err != nil {
			printError("Error: invalid --to date, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		toDate = *toStr
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if cfg.Model.APIKey == "" {
		printError("Error: GOOGLE_API_KEY env var is required\n")
		os.Exit(1)
	}

	dsn := cfg.Database.DSN
	if *inmem {
		dsn = "file::memory:?cache=shared"
	}
	db, err := repository.Open(ctx, repository.Config{DSN: dsn}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	profilesRepo := repository.NewProfileRepository(db)
	docsRepo := repository.NewDocumentRepository(db)
	jobsRepo := repository.NewJobRepository(db)
	extractionsRepo := repository.NewExtractionRepository(db)

	profile, err := profilesRepo.GetOrCreate(ctx, *profileName, "USD", "UTC")
	if err != nil {
		logger.Error("failed to get or create profile", "error", err)
		os.Exit(1)
	}
	logger.Info("using profile", "profile_id", profile.ID, "name", profile.Name)

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

	ingestor := ingest.NewFSIngestor(docsRepo, logger)

	logger.Info("starting ingestion", "dir", *dir, "doc_type", string(docType))
	stats, err := ingestor.IngestDirectory(ctx, profile.ID, *dir, docType)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	processed := 0
	failures := 0
	for _, doc := range stats.Documents {
		logger.Info("processing document", "document_id", doc.ID, "file_name", doc.FileName)
		if err := processor.Process(ctx, doc.ID); err != nil {
			logger.Error("failed to process document", "document_id", doc.ID, "error", err)
			failures++
			continue
		}
		processed++
	}

	exporter := export.NewService(extractionsRepo, docsRepo, logger)
	filter := repository.ExtractionFilter{
		ProfileID: profile.ID,
		DocType:   docType,
		FromDate:  fromDate,
		ToDate:    toDate,
	}

	var body []byte
	switch *format {
	case "csv":
		body, err = exporter.ExportCSV(ctx, filter)
	case "json":
		body, err = exporter.ExportJSONReport(ctx, filter)
	case "xlsx":
		body, err = exporter.ExportXLSX(ctx, filter)
	}
	if err != nil {
		logger.Error("failed to export extractions", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, body, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_ingested", stats.Ingested,
		"files_processed", processed,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files ingested: %d\n", stats.Ingested)
	fmt.Printf("- Files processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}
