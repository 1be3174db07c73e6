package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
)

type JobRepository interface {
	Create(ctx context.Context, documentID, profileID string, docType constants.DocType) (*ExtractJob, error)
	MarkRunning(ctx context.Context, jobID string) error
	FinishPrep(ctx context.Context, jobID, prepText string, confidence float64, pageCount int) error
	FinishModel(ctx context.Context, jobID, rawOutput, modelName string, usage model.Usage) error
	FinishFailure(ctx context.Context, jobID, errMsg, rawOutput string) error
	GetByID(ctx context.Context, id string) (*ExtractJob, error)
	LatestForDocument(ctx context.Context, documentID string) (*ExtractJob, error)
}

type jobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, documentID, profileID string, docType constants.DocType) (*ExtractJob, error) {
	now := time.Now()
	j := &ExtractJob{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		ProfileID:  profileID,
		DocType:    docType,
		Status:     constants.JobStatusQueued,
		StartedAt:  now,
	}
	_, err := r.db.exec(ctx,
		`INSERT INTO extract_jobs (id, document_id, profile_id, doc_type, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.DocumentID, j.ProfileID, string(j.DocType), string(j.Status), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	r.db.logger.Info("extract job created",
		"job_id", j.ID, "document_id", documentID, "doc_type", string(docType))
	return j, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, jobID string) error {
	res, err := r.db.exec(ctx,
		`UPDATE extract_jobs SET status = ? WHERE id = ? AND status = ?`,
		string(constants.JobStatusRunning), jobID, string(constants.JobStatusQueued))
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return checkTransition(res, jobID, constants.JobStatusRunning)
}

func (r *jobRepository) FinishPrep(ctx context.Context, jobID, prepText string, confidence float64, pageCount int) error {
	res, err := r.db.exec(ctx,
		`UPDATE extract_jobs SET status = ?, prep_text = ?, prep_confidence = ?, page_count = ?
		 WHERE id = ? AND status = ?`,
		string(constants.JobStatusPrepOK), prepText, confidence, pageCount,
		jobID, string(constants.JobStatusRunning))
	if err != nil {
		return fmt.Errorf("finish prep: %w", err)
	}
	return checkTransition(res, jobID, constants.JobStatusPrepOK)
}

func (r *jobRepository) FinishModel(ctx context.Context, jobID, rawOutput, modelName string, usage model.Usage) error {
	res, err := r.db.exec(ctx,
		`UPDATE extract_jobs SET status = ?, raw_output = ?, model_name = ?,
		        tokens_prompt = ?, tokens_thoughts = ?, tokens_output = ?, tokens_total = ?,
		        finished_at = ?
		 WHERE id = ? AND status = ?`,
		string(constants.JobStatusModelOK), rawOutput, modelName,
		usage.Prompt, usage.Thoughts, usage.Output, usage.Total,
		formatTime(time.Now()), jobID, string(constants.JobStatusPrepOK))
	if err != nil {
		return fmt.Errorf("finish model: %w", err)
	}
	return checkTransition(res, jobID, constants.JobStatusModelOK)
}

func (r *jobRepository) FinishFailure(ctx context.Context, jobID, errMsg, rawOutput string) error {
	// FAILED is reachable from any non-terminal status.
	res, err := r.db.exec(ctx,
		`UPDATE extract_jobs SET status = ?, error_message = ?, raw_output = ?, finished_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		string(constants.JobStatusFailed), errMsg, rawOutput, formatTime(time.Now()),
		jobID, string(constants.JobStatusModelOK), string(constants.JobStatusFailed))
	if err != nil {
		return fmt.Errorf("finish failure: %w", err)
	}
	if err := checkTransition(res, jobID, constants.JobStatusFailed); err != nil {
		return err
	}
	r.db.logger.Warn("extract job failed", "job_id", jobID, "error", errMsg)
	return nil
}

// checkTransition reports an error when a guarded status UPDATE matched no
// row, meaning the job was missing or not in the expected prior status.
func checkTransition(res sql.Result, jobID string, to constants.JobStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set job status %s: %w", to, err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: illegal transition to %s", jobID, to)
	}
	return nil
}

const jobColumns = `id, document_id, profile_id, doc_type, status, prep_text, prep_confidence,
	page_count, raw_output, model_name, tokens_prompt, tokens_thoughts, tokens_output,
	tokens_total, error_message, started_at, finished_at`

func (r *jobRepository) GetByID(ctx context.Context, id string) (*ExtractJob, error) {
	return scanJob(r.db.queryRow(ctx,
		`SELECT `+jobColumns+` FROM extract_jobs WHERE id = ?`, id))
}

func (r *jobRepository) LatestForDocument(ctx context.Context, documentID string) (*ExtractJob, error) {
	return scanJob(r.db.queryRow(ctx,
		`SELECT `+jobColumns+` FROM extract_jobs WHERE document_id = ?
		 ORDER BY started_at DESC LIMIT 1`, documentID))
}

func scanJob(row rowScanner) (*ExtractJob, error) {
	var j ExtractJob
	var docType, status, started string
	var finished sql.NullString
	if err := row.Scan(&j.ID, &j.DocumentID, &j.ProfileID, &docType, &status, &j.PrepText,
		&j.PrepConfidence, &j.PageCount, &j.RawOutput, &j.ModelName, &j.TokensPrompt,
		&j.TokensThoughts, &j.TokensOutput, &j.TokensTotal, &j.ErrorMessage,
		&started, &finished); err != nil {
		return nil, mapScanErr(err)
	}
	j.DocType = constants.DocType(docType)
	j.Status = constants.JobStatus(status)
	j.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		j.FinishedAt = &t
	}
	return &j, nil
}
