package gemini

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/arampall/intelligent-document-extraction/internal/model"
)

func TestBuildUserPromptIncludesHintsAndOCR(t *testing.T) {
	out := buildUserPrompt(model.ExtractRequest{
		FilenameHint: "receipt-0312.jpg",
		FolderHint:   "2024-03",
		OCRText:      "TOTAL 12.50",
	})
	assert.Contains(t, out, "Filename: receipt-0312.jpg")
	assert.Contains(t, out, "Folder path: 2024-03")
	assert.Contains(t, out, "TOTAL 12.50")
}

func TestBuildUserPromptTruncatesOCRAtRuneBoundary(t *testing.T) {
	// the byte cap lands inside a 2-byte rune; the cut must back up to a
	// rune start instead of emitting a broken sequence
	ocr := "x" + strings.Repeat("é", 4000)
	out := buildUserPrompt(model.ExtractRequest{OCRText: ocr})

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "…(truncated)")
}
