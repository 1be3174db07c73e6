package prep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arampall/intelligent-document-extraction/constants"
)

// scriptedRunner records invocations and optionally creates the output file
// a command would have produced.
type scriptedRunner struct {
	runs     [][]string
	fail     bool
	makeOuts bool // create the last-arg file, like magick/pdftoppm would
	pdfPages int  // pages to fabricate for a pdftoppm call
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.runs = append(s.runs, append([]string{name}, args...))
	if s.fail {
		return nil, []byte("simulated failure"), fmt.Errorf("exit status 1")
	}
	if name == "pdftoppm" && s.pdfPages > 0 {
		prefix := args[len(args)-1]
		for i := 1; i <= s.pdfPages; i++ {
			_ = os.WriteFile(fmt.Sprintf("%s-%02d.png", prefix, i), []byte("png"), 0o644)
		}
		return nil, nil, nil
	}
	if s.makeOuts {
		out := args[len(args)-1]
		_ = os.WriteFile(out, []byte("png"), 0o644)
	}
	return nil, nil, nil
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestRenderImagePassthrough(t *testing.T) {
	p := NewPreprocessor(Config{Enhance: false}, nil)
	stub := &scriptedRunner{}
	p.runner = stub

	src := writeTempFile(t, "receipt.jpg")
	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Equal(t, []string{src}, res.Pages)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.False(t, res.Enhanced)
	assert.Empty(t, stub.runs)
}

func TestRenderImageEnhanceChain(t *testing.T) {
	p := NewPreprocessor(Config{Enhance: true}, nil)
	stub := &scriptedRunner{makeOuts: true}
	p.runner = stub

	src := writeTempFile(t, "receipt.png")
	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	defer res.Cleanup()

	require.Len(t, res.Pages, 1)
	assert.NotEqual(t, src, res.Pages[0])
	assert.True(t, res.Enhanced)

	require.Len(t, stub.runs, 1)
	run := stub.runs[0]
	assert.Equal(t, "magick", run[0])
	assert.Equal(t, src, run[1])
	assert.Contains(t, run, "-colorspace")
	assert.Contains(t, run, "Gray")
	assert.Contains(t, run, "-gaussian-blur")
	assert.Contains(t, run, "-lat")
	assert.Contains(t, run, "-deskew")
	assert.Contains(t, run, "+repage")
}

func TestRenderImageEnhanceFailureFallsBack(t *testing.T) {
	p := NewPreprocessor(Config{Enhance: true}, nil)
	p.runner = &scriptedRunner{fail: true}

	src := writeTempFile(t, "receipt.png")
	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	defer res.Cleanup()

	// falls back to the raw image instead of failing the document
	assert.Equal(t, []string{src}, res.Pages)
	assert.False(t, res.Enhanced)
}

func TestRenderPDF(t *testing.T) {
	p := NewPreprocessor(Config{DPI: 150, MaxPages: 2, Enhance: false}, nil)
	stub := &scriptedRunner{pdfPages: 3}
	p.runner = stub

	src := writeTempFile(t, "doc.pdf")
	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Equal(t, constants.PDF, res.SourceType)
	// MaxPages caps the rendered set
	assert.Len(t, res.Pages, 2)

	require.Len(t, stub.runs, 1)
	run := stub.runs[0]
	assert.Equal(t, "pdftoppm", run[0])
	assert.Contains(t, run, "-r")
	assert.Contains(t, run, "150")
	assert.Contains(t, run, "-png")
}

func TestRenderPDFNoPages(t *testing.T) {
	p := NewPreprocessor(Config{}, nil)
	p.runner = &scriptedRunner{} // pdftoppm "succeeds" but writes nothing

	src := writeTempFile(t, "doc.pdf")
	res, err := p.Render(context.Background(), src)
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	assert.Error(t, err)
}

func TestRenderUnsupportedExtension(t *testing.T) {
	p := NewPreprocessor(Config{}, nil)
	_, err := p.Render(context.Background(), "notes.docx")
	assert.Error(t, err)
}

func TestHEICConversionRequired(t *testing.T) {
	p := NewPreprocessor(Config{HeicConverter: "magick", Enhance: false}, nil)
	stub := &scriptedRunner{makeOuts: true}
	p.runner = stub

	src := writeTempFile(t, "photo.heic")
	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	defer res.Cleanup()

	require.Len(t, res.Pages, 1)
	assert.NotEqual(t, src, res.Pages[0])
	require.Len(t, stub.runs, 1)
	assert.Equal(t, "magick", stub.runs[0][0])
}

func TestHEICConversionCached(t *testing.T) {
	cache := t.TempDir()
	p := NewPreprocessor(Config{HeicConverter: "magick", ArtifactCacheDir: cache}, nil)
	stub := &scriptedRunner{makeOuts: true}
	p.runner = stub

	src := writeTempFile(t, "photo.heic")

	res, err := p.Render(context.Background(), src)
	require.NoError(t, err)
	res.Cleanup()
	require.Len(t, stub.runs, 1)
	first := res.Pages[0]
	assert.Equal(t, cache, filepath.Dir(first))

	// same content converts once; the cached artifact is reused
	res, err = p.Render(context.Background(), src)
	require.NoError(t, err)
	res.Cleanup()
	assert.Len(t, stub.runs, 1)
	assert.Equal(t, first, res.Pages[0])

	// cleanup must not remove the cached artifact
	_, err = os.Stat(first)
	assert.NoError(t, err)
}

func TestHEICUnknownConverter(t *testing.T) {
	p := NewPreprocessor(Config{HeicConverter: "unknown-tool"}, nil)
	p.runner = &scriptedRunner{}

	src := writeTempFile(t, "photo.heic")
	res, err := p.Render(context.Background(), src)
	if res.Cleanup != nil {
		res.Cleanup()
	}
	assert.Error(t, err)
}
