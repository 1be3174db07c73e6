// Package export renders stored extractions as CSV, XLSX, or a JSON run
// report.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/model"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// Service is a tiny façade over repositories that renders extraction rows
// into downloadable documents.
type Service struct {
	extractions repository.ExtractionRepository
	docs        repository.DocumentRepository
	logger      *slog.Logger
}

func NewService(extractions repository.ExtractionRepository, docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractions: extractions, docs: docs, logger: logger}
}

// row is one flattened extraction, shared by the CSV and XLSX writers.
type row struct {
	FileName         string
	DocType          string
	Category         string
	MerchantName     string
	TxDate           string
	Total            string
	CurrencyCode     string
	FullName         string
	YearsExperience  float64
	HighestEducation string
	Items            string
	NeedsReview      bool
}

var receiptHeaders = []string{
	"File", "Merchant", "Date", "Total", "Currency", "Category", "Items", "Needs Review",
}

var resumeHeaders = []string{
	"File", "Name", "Category", "Years Experience", "Highest Education", "Needs Review",
}

func (s *Service) collect(ctx context.Context, f repository.ExtractionFilter) ([]row, error) {
	recs, err := s.extractions.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}

	rows := make([]row, 0, len(recs))
	for _, e := range recs {
		r := row{
			DocType:          string(e.DocType),
			Category:         e.Category,
			MerchantName:     e.MerchantName,
			TxDate:           e.TxDate,
			Total:            e.Total,
			CurrencyCode:     e.CurrencyCode,
			FullName:         e.FullName,
			YearsExperience:  e.YearsExperience,
			HighestEducation: e.HighestEducation,
			NeedsReview:      e.NeedsReview,
		}
		if doc, err := s.docs.GetByID(ctx, e.DocumentID); err == nil {
			r.FileName = doc.FileName
		}
		if e.DocType == constants.Receipt {
			r.Items = summarizeItems(e.FieldsJSON)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// summarizeItems flattens receipt line items into "name x qty; ..." for the
// tabular exports. The full structure stays available in fields_json.
func summarizeItems(fieldsJSON string) string {
	var fields model.ReceiptFields
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return ""
	}
	out := ""
	for i, it := range fields.Items {
		if i > 0 {
			out += "; "
		}
		out += it.Name
		if it.Quantity != "" && it.Quantity != "1" {
			out += " x" + it.Quantity
		}
	}
	return truncate(out, 300)
}

// NormalizeWindow turns optional from/to dates into an inclusive
// YYYY-MM-DD pair. From without to runs through today.
func NormalizeWindow(from, to *time.Time) (string, string) {
	var fromDate, toDate string
	if from != nil {
		fromDate = from.UTC().Format("2006-01-02")
	}
	if to != nil {
		toDate = to.UTC().Format("2006-01-02")
	} else if from != nil {
		toDate = time.Now().UTC().Format("2006-01-02")
	}
	return fromDate, toDate
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// back up to a rune boundary so the cut never splits a multi-byte rune
	cut := n - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
