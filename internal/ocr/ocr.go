package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/prep"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	EnableTSVConfidence bool
	PageConcurrency     int // max pages OCR'd in parallel, default 4
}

// Result is the aggregated OCR output for all pages of one document.
type Result struct {
	Text       string
	Pages      int
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor runs tesseract over rendered page images. The text it produces
// is advisory context for the vision model, never the source of truth.
type Extractor struct {
	cfg    Config
	runner prep.Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	return &Extractor{cfg: cfg, runner: prep.NewExecRunner(), logger: logger}
}

// ExtractPages OCRs every page image and aggregates the text in page order,
// separated by form-feed markers. Pages are processed with bounded
// parallelism; a failed page becomes a warning, not an error.
func (e *Extractor) ExtractPages(ctx context.Context, pages []string, docType constants.DocType) (Result, error) {
	start := time.Now()
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("no pages to ocr")
	}

	texts := make([]string, len(pages))
	confs := make([]float32, len(pages))

	var mu sync.Mutex
	var warns []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			txt, w, err := e.tesseractOCR(gctx, page)
			if err != nil {
				mu.Lock()
				warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
				mu.Unlock()
				return nil
			}
			texts[i] = Normalize(txt)

			var ocrConf float32
			if e.cfg.EnableTSVConfidence {
				if c, w2, err2 := e.tesseractTSVConfidence(gctx, page); err2 == nil {
					ocrConf = c
					w = append(w, w2...)
				} else {
					w = append(w, err2.Error())
				}
			}
			confs[i] = ocrConf

			if len(w) > 0 {
				mu.Lock()
				warns = append(warns, w...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Warnings: warns}, err
	}

	var b strings.Builder
	var confSum float32
	var confN int
	for i, txt := range texts {
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		if confs[i] > 0 {
			confSum += confs[i]
			confN++
		}
	}
	text := b.String()

	var ocrConf float32
	if confN > 0 {
		ocrConf = confSum / float32(confN)
	}
	heurConf := heuristicConfidence(text, docType)

	// blend: weight OCR higher if present
	var conf float32
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	} else {
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return Result{
		Text:       text,
		Pages:      len(pages),
		Language:   e.cfg.TesseractLang,
		Duration:   time.Since(start),
		Warnings:   warns,
		Confidence: conf,
	}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// TSV output
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	return MeanTSVConfidence(string(out)), nil, nil
}

// MeanTSVConfidence parses tesseract TSV output and returns the mean word
// confidence in 0..1, or 0 when no confident words are present.
func MeanTSVConfidence(tsv string) float32 {
	lines := strings.Split(tsv, "\n")
	// conf is column 11 of 12; the word text follows it
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0)
}
