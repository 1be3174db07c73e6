package gemini

import (
	"strings"
	"unicode/utf8"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
)

// maxOCRPromptBytes caps how much locally extracted text rides along in the
// user prompt.
const maxOCRPromptBytes = 6000

// buildSystemPrompt composes the system instruction for a doc type. The
// JSON shape itself is enforced via the response schema, so the prompt
// focuses on semantics: field meaning, defaults, and hygiene.
func buildSystemPrompt(req model.ExtractRequest) string {
	if req.DocType == constants.Resume {
		return buildResumeSystemPrompt(req)
	}
	return buildReceiptSystemPrompt(req)
}

func buildReceiptSystemPrompt(req model.ExtractRequest) string {
	var catLine string
	if len(req.AllowedCategories) > 0 {
		catLine = "You MUST include a 'category' and it MUST be exactly one of the allowed enum. " +
			"If uncertain, choose 'Other'. Allowed categories (enum): " + strings.Join(req.AllowedCategories, ", ") + ". "
	} else {
		catLine = "You MUST include a 'category' that is a short, sensible label. If uncertain, use 'Other'. "
	}

	defCur := strings.TrimSpace(req.DefaultCurrency)
	if defCur == "" {
		defCur = "USD"
	}

	var ctxBits []string
	if n := strings.TrimSpace(req.Profile.ProfileName); n != "" {
		ctxBits = append(ctxBits, "Profile: "+n+".")
	}
	if n := strings.TrimSpace(req.Profile.Notes); n != "" {
		ctxBits = append(ctxBits, n)
	}

	parts := []string{
		"You are a receipt parser. The attached images are the pages of one receipt, in reading order.",
		"Return ONLY JSON that matches the provided schema.",
		"Use ISO-8601 dates (YYYY-MM-DD) and 24h times (HH:MM).",
		"Currency must be a 3-letter ISO 4217 code; default to " + defCur + " if uncertain.",
		catLine,
		"List itemized purchases under 'items' with quantity and unit price where visible.",
		"If taxes appear, put them in 'tax'. Include 'discount' if visible (positive amount representing the discount).",
		"Never output null. If a field is not present, omit it.",
	}
	if len(ctxBits) > 0 {
		parts = append(parts, "Business context: "+strings.Join(ctxBits, " "))
	}
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		parts = append(parts, "If dates are ambiguous, prefer timezone: "+tz+".")
	}
	return strings.Join(parts, " ")
}

func buildResumeSystemPrompt(req model.ExtractRequest) string {
	parts := []string{
		"You are a resume parser. The attached images are the pages of one resume, in reading order.",
		"Return ONLY JSON that matches the provided schema.",
		"'category' is the candidate's professional field (e.g. \"Software Engineering\", \"Accounting\").",
		"'years_experience' is the total years of experience in that category, as a decimal string.",
		"'highest_education' is the highest completed degree or qualification.",
		"Never output null. If a field is not present, omit it.",
	}
	if n := strings.TrimSpace(req.Profile.Notes); n != "" {
		parts = append(parts, "Context: "+n)
	}
	return strings.Join(parts, " ")
}

// buildUserPrompt packages filename/folder hints and the local OCR text.
// The OCR text supports the model; it may correct OCR mistakes from the
// images themselves.
func buildUserPrompt(req model.ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if f := strings.TrimSpace(req.FolderHint); f != "" {
		b.WriteString("Folder path: ")
		b.WriteString(f)
		b.WriteString("\n")
	}

	ocr := strings.TrimSpace(req.OCRText)
	if ocr != "" {
		b.WriteString("\nText extracted locally from the page images (may contain OCR errors; ")
		b.WriteString("use it as support and correct it against the images where they disagree):\n")
		if len(ocr) > maxOCRPromptBytes {
			cut := maxOCRPromptBytes
			for cut > 0 && !utf8.RuneStart(ocr[cut]) {
				cut--
			}
			b.WriteString(ocr[:cut])
			b.WriteString("\n…(truncated)")
		} else {
			b.WriteString(ocr)
		}
	}
	return b.String()
}
