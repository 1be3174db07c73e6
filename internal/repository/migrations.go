package repository

import (
	"context"
	"fmt"
)

// Schema is identical across both engines; types below are the common
// denominator (TEXT timestamps in RFC3339, TEXT decimals).
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL UNIQUE,
		default_currency TEXT NOT NULL DEFAULT 'USD',
		timezone         TEXT NOT NULL DEFAULT 'UTC',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id           TEXT PRIMARY KEY,
		profile_id   TEXT NOT NULL REFERENCES profiles(id),
		source_path  TEXT NOT NULL,
		file_name    TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_format  TEXT NOT NULL,
		doc_type     TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		size_bytes   INTEGER NOT NULL DEFAULT 0,
		uploaded_at  TEXT NOT NULL,
		UNIQUE (profile_id, content_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS extract_jobs (
		id              TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL REFERENCES documents(id),
		profile_id      TEXT NOT NULL REFERENCES profiles(id),
		doc_type        TEXT NOT NULL,
		status          TEXT NOT NULL,
		prep_text       TEXT NOT NULL DEFAULT '',
		prep_confidence REAL NOT NULL DEFAULT 0,
		page_count      INTEGER NOT NULL DEFAULT 0,
		raw_output      TEXT NOT NULL DEFAULT '',
		model_name      TEXT NOT NULL DEFAULT '',
		tokens_prompt   INTEGER NOT NULL DEFAULT 0,
		tokens_thoughts INTEGER NOT NULL DEFAULT 0,
		tokens_output   INTEGER NOT NULL DEFAULT 0,
		tokens_total    INTEGER NOT NULL DEFAULT 0,
		error_message   TEXT NOT NULL DEFAULT '',
		started_at      TEXT NOT NULL,
		finished_at     TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS extractions (
		id                TEXT PRIMARY KEY,
		document_id       TEXT NOT NULL UNIQUE REFERENCES documents(id),
		job_id            TEXT NOT NULL REFERENCES extract_jobs(id),
		profile_id        TEXT NOT NULL REFERENCES profiles(id),
		doc_type          TEXT NOT NULL,
		fields_json       TEXT NOT NULL,
		category          TEXT NOT NULL DEFAULT '',
		merchant_name     TEXT NOT NULL DEFAULT '',
		tx_date           TEXT NOT NULL DEFAULT '',
		total             TEXT NOT NULL DEFAULT '',
		currency_code     TEXT NOT NULL DEFAULT '',
		full_name         TEXT NOT NULL DEFAULT '',
		years_experience  REAL NOT NULL DEFAULT 0,
		highest_education TEXT NOT NULL DEFAULT '',
		model_confidence  REAL NOT NULL DEFAULT 0,
		needs_review      INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_profile ON documents(profile_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_document ON extract_jobs(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_extractions_profile ON extractions(profile_id)`,
	`CREATE INDEX IF NOT EXISTS idx_extractions_tx_date ON extractions(tx_date)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	d.logger.Debug("database schema ensured", "statements", len(migrations))
	return nil
}
