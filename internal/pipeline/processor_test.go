package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
	"github.com/arampall/intelligent-document-extraction/internal/ocr"
	"github.com/arampall/intelligent-document-extraction/internal/prep"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

func discardTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProfiles struct{ p *repository.Profile }

func (f *fakeProfiles) GetOrCreate(context.Context, string, string, string) (*repository.Profile, error) {
	return f.p, nil
}
func (f *fakeProfiles) GetByID(context.Context, string) (*repository.Profile, error) {
	return f.p, nil
}
func (f *fakeProfiles) GetByName(context.Context, string) (*repository.Profile, error) {
	return f.p, nil
}
func (f *fakeProfiles) List(context.Context) ([]*repository.Profile, error) {
	return []*repository.Profile{f.p}, nil
}

type fakeDocs struct{ d *repository.Document }

func (f *fakeDocs) UpsertByHash(_ context.Context, doc *repository.Document) (*repository.Document, bool, error) {
	return doc, false, nil
}
func (f *fakeDocs) GetByID(context.Context, string) (*repository.Document, error) {
	return f.d, nil
}
func (f *fakeDocs) GetByHash(context.Context, string, string) (*repository.Document, error) {
	return f.d, nil
}
func (f *fakeDocs) ListByProfile(context.Context, string) ([]*repository.Document, error) {
	return []*repository.Document{f.d}, nil
}

type fakeJobs struct {
	failureMsg string
	failureRaw string
	modelRaw   string
}

func (f *fakeJobs) Create(_ context.Context, documentID, profileID string, docType constants.DocType) (*repository.ExtractJob, error) {
	return &repository.ExtractJob{
		ID:         "job-1",
		DocumentID: documentID,
		ProfileID:  profileID,
		DocType:    docType,
		Status:     constants.JobStatusQueued,
		StartedAt:  time.Now(),
	}, nil
}
func (f *fakeJobs) MarkRunning(context.Context, string) error { return nil }
func (f *fakeJobs) FinishPrep(context.Context, string, string, float64, int) error {
	return nil
}
func (f *fakeJobs) FinishModel(_ context.Context, _ string, rawOutput, _ string, _ model.Usage) error {
	f.modelRaw = rawOutput
	return nil
}
func (f *fakeJobs) FinishFailure(_ context.Context, _ string, errMsg, rawOutput string) error {
	f.failureMsg = errMsg
	f.failureRaw = rawOutput
	return nil
}
func (f *fakeJobs) GetByID(context.Context, string) (*repository.ExtractJob, error) {
	return nil, nil
}
func (f *fakeJobs) LatestForDocument(context.Context, string) (*repository.ExtractJob, error) {
	return nil, nil
}

type fakeResults struct{ upserted *repository.Extraction }

func (f *fakeResults) Upsert(_ context.Context, e *repository.Extraction) (*repository.Extraction, error) {
	f.upserted = e
	return e, nil
}
func (f *fakeResults) GetByDocument(context.Context, string) (*repository.Extraction, error) {
	return nil, nil
}
func (f *fakeResults) List(context.Context, repository.ExtractionFilter) ([]*repository.Extraction, error) {
	return nil, nil
}

type failingExtractor struct {
	raw []byte
	err error
}

func (f *failingExtractor) ExtractFields(context.Context, model.ExtractRequest) (model.Result, error) {
	return model.Result{Raw: f.raw}, f.err
}

func TestProcessRecordsRawOutputOnModelFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "receipt.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg bytes"), 0o644))

	logger := discardTestLogger()
	raw := []byte(`{"merchant_name":"???","total":"not-a-number"}`)
	jobs := &fakeJobs{}
	p := NewProcessor(
		Config{ModelName: "test-model", DefaultCurrency: "USD", Timezone: "UTC"},
		prep.NewPreprocessor(prep.Config{}, logger),
		ocr.NewExtractor(ocr.Config{Tesseract: filepath.Join(dir, "no-such-tesseract")}, logger),
		&failingExtractor{raw: raw, err: errors.New("schema validation failed: total")},
		&fakeProfiles{p: &repository.Profile{ID: "p1", Name: "test", DefaultCurrency: "USD", Timezone: "UTC"}},
		&fakeDocs{d: &repository.Document{
			ID: "d1", ProfileID: "p1", DocType: constants.Receipt,
			FileName: "receipt.jpg", SourcePath: src,
		}},
		jobs, &fakeResults{}, logger)

	err := p.Process(context.Background(), "d1")
	require.Error(t, err)
	assert.Contains(t, jobs.failureMsg, "schema validation failed")
	assert.Equal(t, string(raw), jobs.failureRaw)
}
