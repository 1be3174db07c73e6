package prep

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arampall/intelligent-document-extraction/constants"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	Magick   string // binary name or absolute path; if empty -> "magick"

	HeicConverter string // "heif-convert" | "magick" | "sips"

	DPI      int // rasterization DPI for PDFs, default 300
	MaxPages int // 0 = no limit

	// Enhance runs the grayscale/denoise/binarize/deskew chain on every
	// page before OCR and upload. Off, pages are used as rendered.
	Enhance bool

	// ArtifactCacheDir, when set, keeps converted HEIC pages keyed by
	// content hash so repeat runs skip the conversion.
	ArtifactCacheDir string
}

// Result describes the rendered (and possibly enhanced) page images for one
// source document. Call Cleanup to remove temporary files.
type Result struct {
	Pages      []string // ordered page image paths
	SourceType constants.FileFormat
	Enhanced   bool
	Warnings   []string
	Duration   time.Duration
	Cleanup    func()
}

// Preprocessor turns a source file (PDF or image) into a list of page
// images ready for OCR and the vision model.
type Preprocessor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPreprocessor(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Magick == "" {
		cfg.Magick = "magick"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Preprocessor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Render picks a strategy based on file extension.
func (p *Preprocessor) Render(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	p.logger.Debug("prep.render.start", "path", path, "ext", ext)

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := p.renderPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := p.renderImage(ctx, path, ext)
		res.Duration = time.Since(start)
		return res, err
	default:
		p.logger.Error("prep.render.unsupported", "extension", ext)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

func (p *Preprocessor) renderImage(ctx context.Context, path, ext string) (Result, error) {
	res := Result{SourceType: constants.IMAGE, Cleanup: func() {}}

	if constants.IsHEICExt(ext) {
		out, warns, cleanup, err := convertHEICtoPNG(ctx, p.runner, p.cfg.HeicConverter, p.cfg.ArtifactCacheDir, path)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			p.logger.Error("prep.heic.failed", "path", path, "error", err)
			if cleanup != nil {
				cleanup()
			}
			return res, err
		}
		res.Cleanup = cleanup
		path = out
	}

	if !p.cfg.Enhance {
		res.Pages = []string{path}
		return res, nil
	}

	tmpDir, err := os.MkdirTemp("", "ide-prep-*")
	if err != nil {
		return res, err
	}
	prev := res.Cleanup
	res.Cleanup = func() { _ = os.RemoveAll(tmpDir); prev() }

	out := filepath.Join(tmpDir, "page-1.png")
	if warns, err := p.enhance(ctx, path, out); err != nil {
		res.Warnings = append(res.Warnings, warns...)
		// fall back to the raw image rather than failing the document
		p.logger.Warn("prep.enhance.failed", "path", path, "error", err)
		res.Pages = []string{path}
		return res, nil
	}
	res.Pages = []string{out}
	res.Enhanced = true
	return res, nil
}

func (p *Preprocessor) renderPDF(ctx context.Context, path string) (Result, error) {
	res := Result{SourceType: constants.PDF, Cleanup: func() {}}

	tmpDir, err := os.MkdirTemp("", "ide-prep-*")
	if err != nil {
		return res, err
	}
	res.Cleanup = func() { _ = os.RemoveAll(tmpDir) }

	pages, warns, err := p.rasterizePDF(ctx, path, tmpDir)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}

	if !p.cfg.Enhance {
		res.Pages = pages
		return res, nil
	}

	enhanced := make([]string, 0, len(pages))
	for i, page := range pages {
		out := filepath.Join(tmpDir, fmt.Sprintf("enh-%d.png", i+1))
		if w, err := p.enhance(ctx, page, out); err != nil {
			res.Warnings = append(res.Warnings, w...)
			p.logger.Warn("prep.enhance.failed", "page", i+1, "error", err)
			enhanced = append(enhanced, page)
			continue
		}
		enhanced = append(enhanced, out)
	}
	res.Pages = enhanced
	res.Enhanced = true
	return res, nil
}
