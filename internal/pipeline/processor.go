// Package pipeline drives a document through the two extraction stages:
// page preparation (render, enhance, OCR) and model field extraction.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/model"
	"github.com/arampall/intelligent-document-extraction/internal/ocr"
	"github.com/arampall/intelligent-document-extraction/internal/prep"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

type Config struct {
	ModelName       string
	DefaultCurrency string
	Timezone        string
	// ReviewConfidence is the blended prep confidence below which an
	// extraction is flagged for manual review.
	ReviewConfidence float32
}

// Processor runs the full extraction flow for a single document. It is safe
// for concurrent use; state lives in the repositories.
type Processor struct {
	cfg      Config
	preproc  *prep.Preprocessor
	ocr      *ocr.Extractor
	extract  model.FieldExtractor
	profiles repository.ProfileRepository
	docs     repository.DocumentRepository
	jobs     repository.JobRepository
	results  repository.ExtractionRepository
	logger   *slog.Logger
}

func NewProcessor(
	cfg Config,
	preproc *prep.Preprocessor,
	ocrExt *ocr.Extractor,
	extract model.FieldExtractor,
	profiles repository.ProfileRepository,
	docs repository.DocumentRepository,
	jobs repository.JobRepository,
	results repository.ExtractionRepository,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReviewConfidence <= 0 {
		cfg.ReviewConfidence = 0.6
	}
	return &Processor{
		cfg:      cfg,
		preproc:  preproc,
		ocr:      ocrExt,
		extract:  extract,
		profiles: profiles,
		docs:     docs,
		jobs:     jobs,
		results:  results,
		logger:   logger,
	}
}

// Process runs both stages for the document and records the outcome on the
// job row. An error return always leaves the job in FAILED.
func (p *Processor) Process(ctx context.Context, documentID string) (err error) {
	start := time.Now()
	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	profile, err := p.profiles.GetByID(ctx, doc.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", doc.ProfileID, err)
	}

	job, err := p.jobs.Create(ctx, doc.ID, doc.ProfileID, doc.DocType)
	if err != nil {
		return err
	}
	if err := p.jobs.MarkRunning(ctx, job.ID); err != nil {
		return err
	}
	p.logger.Info("pipeline.start",
		"job_id", job.ID,
		"document_id", doc.ID,
		"doc_type", string(doc.DocType),
		"file_name", doc.FileName,
		"trace_id", common.RequestIDFromContext(ctx))

	var failureRaw string
	defer func() {
		if err != nil {
			if ferr := p.jobs.FinishFailure(ctx, job.ID, err.Error(), failureRaw); ferr != nil {
				p.logger.Error("pipeline.fail_record_error", "job_id", job.ID, "error", ferr)
			}
		}
	}()

	stage, err := p.runPrepStage(ctx, job.ID, doc)
	if err != nil {
		return err
	}
	defer stage.cleanup()

	if raw, merr := p.runModelStage(ctx, job.ID, doc, profile, stage); merr != nil {
		failureRaw = string(raw)
		return merr
	}

	p.logger.Info("pipeline.done",
		"job_id", job.ID,
		"document_id", doc.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
