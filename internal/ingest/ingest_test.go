package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// memDocs keeps documents keyed by (profile, hash), mirroring the dedup
// constraint, so ingestion can be tested without a database.
type memDocs struct {
	byHash map[string]*repository.Document
	nextID int
}

func newMemDocs() *memDocs {
	return &memDocs{byHash: map[string]*repository.Document{}}
}

func (m *memDocs) key(profileID, hash string) string { return profileID + "/" + hash }

func (m *memDocs) UpsertByHash(_ context.Context, doc *repository.Document) (*repository.Document, bool, error) {
	if existing, ok := m.byHash[m.key(doc.ProfileID, doc.ContentHash)]; ok {
		return existing, true, nil
	}
	m.nextID++
	doc.ID = filepath.Base(doc.FileName)
	m.byHash[m.key(doc.ProfileID, doc.ContentHash)] = doc
	return doc, false, nil
}

func (m *memDocs) GetByID(context.Context, string) (*repository.Document, error) {
	return nil, common.ErrNotFound
}

func (m *memDocs) GetByHash(_ context.Context, profileID, hash string) (*repository.Document, error) {
	if d, ok := m.byHash[m.key(profileID, hash)]; ok {
		return d, nil
	}
	return nil, common.ErrNotFound
}

func (m *memDocs) ListByProfile(context.Context, string) ([]*repository.Document, error) {
	out := make([]*repository.Document, 0, len(m.byHash))
	for _, d := range m.byHash {
		out = append(out, d)
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "receipt.jpg", "jpeg bytes")
	ing := NewFSIngestor(newMemDocs(), discardLogger())

	res, err := ing.IngestFile(context.Background(), "p1", path, constants.Receipt)
	require.NoError(t, err)
	require.False(t, res.Skipped)
	assert.False(t, res.Duplicate)
	require.NotNil(t, res.Document)
	assert.Equal(t, "receipt.jpg", res.Document.FileName)
	assert.Equal(t, "jpg", res.Document.FileExt)
	assert.Equal(t, constants.IMAGE, res.Document.FileFormat)
	assert.Equal(t, constants.Receipt, res.Document.DocType)
	assert.Equal(t, int64(len("jpeg bytes")), res.Document.SizeBytes)
	assert.Len(t, res.Document.ContentHash, 64)
	assert.True(t, filepath.IsAbs(res.Document.SourcePath))
}

func TestIngestFileDeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.jpg", "same bytes")
	second := writeFile(t, dir, "b.jpg", "same bytes")
	ing := NewFSIngestor(newMemDocs(), discardLogger())
	ctx := context.Background()

	r1, err := ing.IngestFile(ctx, "p1", first, constants.Receipt)
	require.NoError(t, err)
	assert.False(t, r1.Duplicate)

	r2, err := ing.IngestFile(ctx, "p1", second, constants.Receipt)
	require.NoError(t, err)
	assert.True(t, r2.Duplicate)
	assert.Equal(t, r1.Document.ID, r2.Document.ID)

	// another profile ingests the same bytes as its own document
	r3, err := ing.IngestFile(ctx, "p2", second, constants.Receipt)
	require.NoError(t, err)
	assert.False(t, r3.Duplicate)
}

func TestIngestFileSkips(t *testing.T) {
	dir := t.TempDir()
	ing := NewFSIngestor(newMemDocs(), discardLogger())
	ctx := context.Background()

	hidden := writeFile(t, dir, ".DS_Store", "junk")
	res, err := ing.IngestFile(ctx, "p1", hidden, constants.Receipt)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "hidden file", res.Reason)

	doc := writeFile(t, dir, "notes.txt", "plain text")
	res, err = ing.IngestFile(ctx, "p1", doc, constants.Receipt)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.Reason, "unsupported extension")
}

func TestIngestFileMissing(t *testing.T) {
	ing := NewFSIngestor(newMemDocs(), discardLogger())
	_, err := ing.IngestFile(context.Background(), "p1", filepath.Join(t.TempDir(), "gone.jpg"), constants.Receipt)
	require.Error(t, err)
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.jpg", "one")
	writeFile(t, dir, "two.pdf", "two")
	writeFile(t, dir, "copy.jpg", "one") // duplicate content
	writeFile(t, dir, "readme.md", "nope")
	writeFile(t, dir, ".hidden.jpg", "hidden")
	writeFile(t, dir, filepath.Join(".git", "blob.jpg"), "ignored entirely")
	writeFile(t, dir, filepath.Join("nested", "three.png"), "three")

	ing := NewFSIngestor(newMemDocs(), discardLogger())
	stats, err := ing.IngestDirectory(context.Background(), "p1", dir, constants.Receipt)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Scanned, "hidden directories are not walked")
	assert.Equal(t, 3, stats.Ingested)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)
	assert.Len(t, stats.Documents, 3)
}

func TestIngestDirectoryRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "single.jpg", "bytes")
	ing := NewFSIngestor(newMemDocs(), discardLogger())

	_, err := ing.IngestDirectory(context.Background(), "p1", path, constants.Receipt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
