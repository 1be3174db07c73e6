package pipeline

import (
	"context"
	"fmt"

	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// prepOutcome is handed from the prep stage to the model stage.
type prepOutcome struct {
	pages      []string
	ocrText    string
	confidence float32
	cleanup    func()
}

func (p *Processor) runPrepStage(ctx context.Context, jobID string, doc *repository.Document) (*prepOutcome, error) {
	rendered, err := p.preproc.Render(ctx, doc.SourcePath)
	if err != nil {
		if rendered.Cleanup != nil {
			rendered.Cleanup()
		}
		return nil, fmt.Errorf("render pages: %w", err)
	}
	if len(rendered.Pages) == 0 {
		rendered.Cleanup()
		return nil, fmt.Errorf("no pages rendered from %s", doc.FileName)
	}

	text, err := p.ocr.ExtractPages(ctx, rendered.Pages, doc.DocType)
	if err != nil {
		// OCR text is advisory; the vision model still sees the pages.
		p.logger.Warn("pipeline.ocr.failed", "job_id", jobID, "error", err)
	}
	for _, w := range append(rendered.Warnings, text.Warnings...) {
		p.logger.Warn("pipeline.prep.warning", "job_id", jobID, "warning", w)
	}

	if err := p.jobs.FinishPrep(ctx, jobID, text.Text, float64(text.Confidence), len(rendered.Pages)); err != nil {
		rendered.Cleanup()
		return nil, err
	}
	p.logger.Info("pipeline.prep.done",
		"job_id", jobID,
		"pages", len(rendered.Pages),
		"enhanced", rendered.Enhanced,
		"ocr_chars", len(text.Text),
		"confidence", text.Confidence)

	return &prepOutcome{
		pages:      rendered.Pages,
		ocrText:    text.Text,
		confidence: text.Confidence,
		cleanup:    rendered.Cleanup,
	}, nil
}
