// Package async hands extraction work to a bounded worker pool so upload
// and ingest calls return immediately.
package async

import (
	"context"
	"time"
)

// Job is one document queued for extraction.
type Job struct {
	DocumentID  string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
