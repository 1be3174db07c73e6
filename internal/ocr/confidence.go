package ocr

import (
	"regexp"
	"strings"

	"github.com/arampall/intelligent-document-extraction/constants"
)

var (
	reDate   = regexp.MustCompile(`\b(20\d{2})[-/.]\d{1,2}[-/.]\d{1,2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.](20)?\d{2}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€₹]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reEmail  = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
)

var resumeSections = []string{"experience", "education", "skills", "summary", "employment"}

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasCurrencyPattern(s string) bool { return reCurr.MatchString(s) }
func hasAmountPattern(s string) bool   { return reAmount.MatchString(s) }

// heuristicConfidence estimates how receipt-like (or resume-like) the
// decoded text is. Used as a weak prior when tesseract gives no TSV
// confidence, and blended in otherwise.
func heuristicConfidence(txt string, docType constants.DocType) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base

	switch docType {
	case constants.Resume:
		for _, sec := range resumeSections {
			if strings.Contains(txtL, sec) {
				score += 0.12
			}
		}
		if reEmail.MatchString(txtL) {
			score += 0.15
		}
	default:
		if hasDatePattern(txtL) {
			score += 0.2
		}
		if hasCurrencyPattern(txtL) {
			score += 0.15
		}
		if hasAmountPattern(txtL) {
			score += 0.15
		}
	}

	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
