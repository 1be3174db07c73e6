package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// runModelStage returns the model's raw output alongside any error so the
// caller can record it on a failed job.
func (p *Processor) runModelStage(ctx context.Context, jobID string, doc *repository.Document, profile *repository.Profile, stage *prepOutcome) ([]byte, error) {
	currency := profile.DefaultCurrency
	if currency == "" {
		currency = p.cfg.DefaultCurrency
	}
	tz := profile.Timezone
	if tz == "" {
		tz = p.cfg.Timezone
	}

	req := model.ExtractRequest{
		DocType:         doc.DocType,
		PagePaths:       stage.pages,
		OCRText:         stage.ocrText,
		FilenameHint:    doc.FileName,
		FolderHint:      filepath.Base(filepath.Dir(doc.SourcePath)),
		DefaultCurrency: currency,
		Timezone:        tz,
		PrepConfidence:  stage.confidence,
		Profile: model.ProfileContext{
			ProfileName: profile.Name,
			Notes:       profile.Notes,
		},
	}
	if doc.DocType == constants.Receipt {
		req.AllowedCategories = constants.Categories()
	}

	res, err := p.extract.ExtractFields(ctx, req)
	if err != nil {
		return res.Raw, fmt.Errorf("model extraction: %w", err)
	}

	ext, err := p.reconcile(doc, jobID, stage, res)
	if err != nil {
		return res.Raw, err
	}
	if _, err := p.results.Upsert(ctx, ext); err != nil {
		return res.Raw, err
	}
	return res.Raw, p.jobs.FinishModel(ctx, jobID, string(res.Raw), p.cfg.ModelName, res.Usage)
}

// reconcile maps validated model output onto the stored extraction row and
// decides whether a human should look at it.
func (p *Processor) reconcile(doc *repository.Document, jobID string, stage *prepOutcome, res model.Result) (*repository.Extraction, error) {
	ext := &repository.Extraction{
		DocumentID: doc.ID,
		JobID:      jobID,
		ProfileID:  doc.ProfileID,
		DocType:    doc.DocType,
	}

	needsReview := stage.confidence > 0 && stage.confidence < p.cfg.ReviewConfidence

	switch doc.DocType {
	case constants.Receipt:
		if res.Receipt == nil {
			return nil, fmt.Errorf("model returned no receipt fields")
		}
		r := res.Receipt
		if cat, ok := constants.Canonicalize(r.Category); ok {
			r.Category = string(cat)
		} else {
			r.Category = string(constants.Other)
			needsReview = true
		}
		if r.MerchantName == "" || r.TxDate == "" || r.Total == "" {
			needsReview = true
		}
		if r.ModelConfidence > 0 && r.ModelConfidence < p.cfg.ReviewConfidence {
			needsReview = true
		}
		ext.Category = r.Category
		ext.MerchantName = r.MerchantName
		ext.TxDate = r.TxDate
		ext.Total = r.Total
		ext.CurrencyCode = r.CurrencyCode
		ext.ModelConfidence = float64(r.ModelConfidence)

		fields, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal receipt fields: %w", err)
		}
		ext.FieldsJSON = string(fields)

	case constants.Resume:
		if res.Resume == nil {
			return nil, fmt.Errorf("model returned no resume fields")
		}
		r := res.Resume
		if r.Category == "" || r.HighestEducation == "" {
			needsReview = true
		}
		if r.ModelConfidence > 0 && r.ModelConfidence < p.cfg.ReviewConfidence {
			needsReview = true
		}
		ext.Category = r.Category
		ext.FullName = r.FullName
		ext.HighestEducation = r.HighestEducation
		ext.ModelConfidence = float64(r.ModelConfidence)
		if years, err := strconv.ParseFloat(r.YearsExperience, 64); err == nil {
			ext.YearsExperience = years
		} else if r.YearsExperience != "" {
			needsReview = true
		}

		fields, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal resume fields: %w", err)
		}
		ext.FieldsJSON = string(fields)

	default:
		return nil, fmt.Errorf("unknown doc type %q", doc.DocType)
	}

	ext.NeedsReview = needsReview
	return ext, nil
}
