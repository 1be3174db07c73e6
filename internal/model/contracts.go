package model

import (
	"context"

	"github.com/arampall/intelligent-document-extraction/constants"
)

type ProfileContext struct {
	ProfileName string `json:"profile_name,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// LineItem is a single itemized entry on a receipt.
type LineItem struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity,omitempty"`   // decimal, default "1"
	UnitPrice string `json:"unit_price,omitempty"` // decimal
}

// ReceiptFields is the normalized shape we want from the model for receipts.
// This schema belongs to the program, not to any single model's prompt.
type ReceiptFields struct {
	MerchantName    string     `json:"merchant_name"`
	TxDate          string     `json:"tx_date"`           // YYYY-MM-DD
	TxTime          string     `json:"tx_time,omitempty"` // HH:MM
	Address         string     `json:"address,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Subtotal        string     `json:"subtotal,omitempty"` // decimal
	Discount        string     `json:"discount,omitempty"` // decimal, discount magnitude
	Tax             string     `json:"tax,omitempty"`      // decimal
	Tip             string     `json:"tip,omitempty"`      // decimal
	Total           string     `json:"total"`              // decimal
	CurrencyCode    string     `json:"currency_code"`      // ISO 4217
	Category        string     `json:"category,omitempty"` // must match taxonomy if provided
	PaymentMethod   string     `json:"payment_method,omitempty"`
	PaymentLast4    string     `json:"payment_last4,omitempty"` // 4 digits
	ReceiptNumber   string     `json:"receipt_number,omitempty"`
	Items           []LineItem `json:"items,omitempty"`
	ModelConfidence float32    `json:"confidence,omitempty"` // optional (0..1)
}

// ResumeFields is the normalized shape we want from the model for resumes.
type ResumeFields struct {
	FullName         string   `json:"full_name,omitempty"`
	Email            string   `json:"email,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Category         string   `json:"category"`          // professional field, e.g. "Software Engineering"
	YearsExperience  string   `json:"years_experience"`  // decimal, total years in the category
	HighestEducation string   `json:"highest_education"` // e.g. "MSc Computer Science"
	Skills           []string `json:"skills,omitempty"`
	ModelConfidence  float32  `json:"confidence,omitempty"` // optional (0..1)
}

// ExtractRequest carries everything the extractor needs for one document.
type ExtractRequest struct {
	DocType constants.DocType

	// PagePaths are the preprocessed page images, in reading order.
	PagePaths []string
	// OCRText is the aggregated local OCR output; advisory only.
	OCRText string

	FilenameHint      string
	FolderHint        string
	AllowedCategories []string
	DefaultCurrency   string
	Timezone          string

	PrepConfidence float32

	Profile ProfileContext
}

// Usage mirrors the model's token accounting for one request.
type Usage struct {
	Prompt   int `json:"prompt"`
	Thoughts int `json:"thoughts"`
	Output   int `json:"output"`
	Total    int `json:"total"`
}

// Result is the validated extraction output. Exactly one of Receipt/Resume
// is set, matching the request's DocType. Raw is the sanitized JSON that
// passed schema validation (or the offending output on failure).
type Result struct {
	DocType constants.DocType
	Receipt *ReceiptFields
	Resume  *ResumeFields
	Raw     []byte
	Usage   Usage
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (Result, error)
}
