package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
)

type ExtractionFilter struct {
	ProfileID string
	DocType   constants.DocType
	Category  string
	FromDate  string // inclusive, YYYY-MM-DD, receipts only
	ToDate    string // inclusive
}

type ExtractionRepository interface {
	// Upsert keeps one extraction per document; reprocessing replaces
	// the previous fields in place.
	Upsert(ctx context.Context, e *Extraction) (*Extraction, error)
	GetByDocument(ctx context.Context, documentID string) (*Extraction, error)
	List(ctx context.Context, f ExtractionFilter) ([]*Extraction, error)
}

type extractionRepository struct {
	db *DB
}

func NewExtractionRepository(db *DB) ExtractionRepository {
	return &extractionRepository{db: db}
}

func (r *extractionRepository) Upsert(ctx context.Context, e *Extraction) (*Extraction, error) {
	now := time.Now()
	existing, err := r.GetByDocument(ctx, e.DocumentID)
	switch {
	case err == nil:
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		e.UpdatedAt = now
		_, err = r.db.exec(ctx,
			`UPDATE extractions SET job_id = ?, doc_type = ?, fields_json = ?, category = ?,
			        merchant_name = ?, tx_date = ?, total = ?, currency_code = ?,
			        full_name = ?, years_experience = ?, highest_education = ?,
			        model_confidence = ?, needs_review = ?, updated_at = ?
			 WHERE id = ?`,
			e.JobID, string(e.DocType), e.FieldsJSON, e.Category,
			e.MerchantName, e.TxDate, e.Total, e.CurrencyCode,
			e.FullName, e.YearsExperience, e.HighestEducation,
			e.ModelConfidence, boolToInt(e.NeedsReview), formatTime(now), e.ID)
		if err != nil {
			return nil, fmt.Errorf("update extraction: %w", err)
		}
		r.db.logger.Info("extraction replaced", "extraction_id", e.ID, "document_id", e.DocumentID)
		return e, nil
	case errors.Is(err, common.ErrNotFound):
		e.ID = uuid.NewString()
		e.CreatedAt = now
		e.UpdatedAt = now
		_, err = r.db.exec(ctx,
			`INSERT INTO extractions (id, document_id, job_id, profile_id, doc_type, fields_json,
			        category, merchant_name, tx_date, total, currency_code, full_name,
			        years_experience, highest_education, model_confidence, needs_review,
			        created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.DocumentID, e.JobID, e.ProfileID, string(e.DocType), e.FieldsJSON,
			e.Category, e.MerchantName, e.TxDate, e.Total, e.CurrencyCode, e.FullName,
			e.YearsExperience, e.HighestEducation, e.ModelConfidence, boolToInt(e.NeedsReview),
			formatTime(now), formatTime(now))
		if err != nil {
			return nil, fmt.Errorf("insert extraction: %w", err)
		}
		r.db.logger.Info("extraction stored",
			"extraction_id", e.ID,
			"document_id", e.DocumentID,
			"category", e.Category,
			"needs_review", e.NeedsReview)
		return e, nil
	default:
		return nil, err
	}
}

const extractionColumns = `id, document_id, job_id, profile_id, doc_type, fields_json, category,
	merchant_name, tx_date, total, currency_code, full_name, years_experience,
	highest_education, model_confidence, needs_review, created_at, updated_at`

func (r *extractionRepository) GetByDocument(ctx context.Context, documentID string) (*Extraction, error) {
	return scanExtraction(r.db.queryRow(ctx,
		`SELECT `+extractionColumns+` FROM extractions WHERE document_id = ?`, documentID))
}

func (r *extractionRepository) List(ctx context.Context, f ExtractionFilter) ([]*Extraction, error) {
	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE 1=1`
	var args []any
	if f.ProfileID != "" {
		query += ` AND profile_id = ?`
		args = append(args, f.ProfileID)
	}
	if f.DocType != "" {
		query += ` AND doc_type = ?`
		args = append(args, string(f.DocType))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.FromDate != "" {
		query += ` AND tx_date >= ?`
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		query += ` AND tx_date <= ?`
		args = append(args, f.ToDate)
	}
	query += ` ORDER BY tx_date DESC, created_at DESC`

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list extractions: %w", err)
	}
	defer rows.Close()

	var out []*Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanExtraction(row rowScanner) (*Extraction, error) {
	var e Extraction
	var docType, created, updated string
	var needsReview int
	if err := row.Scan(&e.ID, &e.DocumentID, &e.JobID, &e.ProfileID, &docType, &e.FieldsJSON,
		&e.Category, &e.MerchantName, &e.TxDate, &e.Total, &e.CurrencyCode, &e.FullName,
		&e.YearsExperience, &e.HighestEducation, &e.ModelConfidence, &needsReview,
		&created, &updated); err != nil {
		return nil, mapScanErr(err)
	}
	e.DocType = constants.DocType(docType)
	e.NeedsReview = needsReview != 0
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
