package constants

import "strings"

// DocType identifies the kind of document a file contains. It selects the
// extraction schema, prompt, and reconciliation rules downstream.
type DocType string

const (
	Receipt DocType = "RECEIPT"
	Resume  DocType = "RESUME"
)

var allDocTypes = []DocType{Receipt, Resume}

func DocTypes() []string {
	out := make([]string, len(allDocTypes))
	for i, dt := range allDocTypes {
		out[i] = string(dt)
	}
	return out
}

// ParseDocType maps user input ("receipt", "RESUME", ...) to a DocType.
func ParseDocType(s string) (DocType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Receipt):
		return Receipt, true
	case string(Resume):
		return Resume, true
	}
	return "", false
}
