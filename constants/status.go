package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in the DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"   // accepted, waiting for a worker
	JobStatusRunning JobStatus = "RUNNING"  // in progress
	JobStatusPrepOK  JobStatus = "PREP_OK"  // stage 1 done (pages rendered, text extracted)
	JobStatusModelOK JobStatus = "MODEL_OK" // stage 2 done (fields extracted)
	JobStatusFailed  JobStatus = "FAILED"   // terminal failure
)
