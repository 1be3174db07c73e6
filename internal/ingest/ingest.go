// Package ingest copies source files into the workspace and registers them
// for extraction, deduplicating by content hash.
package ingest

import (
	"context"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// Result describes the outcome of ingesting a single file.
type Result struct {
	Document  *repository.Document
	Duplicate bool
	Skipped   bool
	Reason    string
}

// DirStats summarizes a directory ingestion run.
type DirStats struct {
	Scanned    int
	Ingested   int
	Duplicates int
	Skipped    int
	Failed     int
	Documents  []*repository.Document
}

type Ingestor interface {
	// IngestFile registers one file for the profile. Unsupported extensions
	// and hidden files come back as Skipped, not errors.
	IngestFile(ctx context.Context, profileID, path string, docType constants.DocType) (*Result, error)
	// IngestDirectory walks root recursively and ingests every supported file.
	IngestDirectory(ctx context.Context, profileID, root string, docType constants.DocType) (*DirStats, error)
}
