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

type DocumentRepository interface {
	// UpsertByHash returns the existing row when the same content was already
	// ingested for the profile; duplicate reports true in that case.
	UpsertByHash(ctx context.Context, doc *Document) (stored *Document, duplicate bool, err error)
	GetByID(ctx context.Context, id string) (*Document, error)
	GetByHash(ctx context.Context, profileID, hash string) (*Document, error)
	ListByProfile(ctx context.Context, profileID string) ([]*Document, error)
}

type documentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) UpsertByHash(ctx context.Context, doc *Document) (*Document, bool, error) {
	if existing, err := r.GetByHash(ctx, doc.ProfileID, doc.ContentHash); err == nil {
		r.db.logger.Info("duplicate document skipped",
			"document_id", existing.ID,
			"file_name", doc.FileName,
			"content_hash", doc.ContentHash)
		return existing, true, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err := r.db.exec(ctx,
		`INSERT INTO documents (id, profile_id, source_path, file_name, file_ext, file_format,
		                        doc_type, content_hash, size_bytes, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.ProfileID, doc.SourcePath, doc.FileName, doc.FileExt, string(doc.FileFormat),
		string(doc.DocType), doc.ContentHash, doc.SizeBytes, formatTime(doc.UploadedAt))
	if err != nil {
		return nil, false, fmt.Errorf("insert document: %w", err)
	}
	r.db.logger.Info("document stored",
		"document_id", doc.ID,
		"file_name", doc.FileName,
		"doc_type", string(doc.DocType),
		"size_bytes", doc.SizeBytes)
	return doc, false, nil
}

const documentColumns = `id, profile_id, source_path, file_name, file_ext, file_format,
	doc_type, content_hash, size_bytes, uploaded_at`

func (r *documentRepository) GetByID(ctx context.Context, id string) (*Document, error) {
	return scanDocument(r.db.queryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
}

func (r *documentRepository) GetByHash(ctx context.Context, profileID, hash string) (*Document, error) {
	return scanDocument(r.db.queryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE profile_id = ? AND content_hash = ?`,
		profileID, hash))
}

func (r *documentRepository) ListByProfile(ctx context.Context, profileID string) ([]*Document, error) {
	rows, err := r.db.query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE profile_id = ? ORDER BY uploaded_at DESC`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var format, docType, uploaded string
	if err := row.Scan(&d.ID, &d.ProfileID, &d.SourcePath, &d.FileName, &d.FileExt, &format,
		&docType, &d.ContentHash, &d.SizeBytes, &uploaded); err != nil {
		return nil, mapScanErr(err)
	}
	d.FileFormat = constants.FileFormat(format)
	d.DocType = constants.DocType(docType)
	d.UploadedAt = parseTime(uploaded)
	return &d, nil
}
