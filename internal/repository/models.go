package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
)

const timeLayout = time.RFC3339

// mapScanErr converts the driver's no-rows error into the application
// sentinel so callers never depend on database/sql.
func mapScanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	return err
}

type Profile struct {
	ID              string
	Name            string
	DefaultCurrency string
	Timezone        string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Document struct {
	ID          string
	ProfileID   string
	SourcePath  string
	FileName    string
	FileExt     string
	FileFormat  constants.FileFormat
	DocType     constants.DocType
	ContentHash string
	SizeBytes   int64
	UploadedAt  time.Time
}

type ExtractJob struct {
	ID             string
	DocumentID     string
	ProfileID      string
	DocType        constants.DocType
	Status         constants.JobStatus
	PrepText       string
	PrepConfidence float64
	PageCount      int
	RawOutput      string
	ModelName      string
	TokensPrompt   int
	TokensThoughts int
	TokensOutput   int
	TokensTotal    int
	ErrorMessage   string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

type Extraction struct {
	ID               string
	DocumentID       string
	JobID            string
	ProfileID        string
	DocType          constants.DocType
	FieldsJSON       string
	Category         string
	MerchantName     string
	TxDate           string
	Total            string
	CurrencyCode     string
	FullName         string
	YearsExperience  float64
	HighestEducation string
	ModelConfidence  float64
	NeedsReview      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
