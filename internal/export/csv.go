package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// ExportCSV returns CSV bytes for the filtered extractions. Column layout
// follows the doc type in the filter; when the filter has no doc type,
// receipt columns are used.
func (s *Service) ExportCSV(ctx context.Context, f repository.ExtractionFilter) ([]byte, error) {
	start := time.Now()
	rows, err := s.collect(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if f.DocType == constants.Resume {
		if err := w.Write(resumeHeaders); err != nil {
			return nil, err
		}
		for _, r := range rows {
			rec := []string{
				r.FileName,
				r.FullName,
				r.Category,
				strconv.FormatFloat(r.YearsExperience, 'f', -1, 64),
				r.HighestEducation,
				strconv.FormatBool(r.NeedsReview),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	} else {
		if err := w.Write(receiptHeaders); err != nil {
			return nil, err
		}
		for _, r := range rows {
			rec := []string{
				r.FileName,
				r.MerchantName,
				r.TxDate,
				r.Total,
				r.CurrencyCode,
				r.Category,
				r.Items,
				strconv.FormatBool(r.NeedsReview),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"profile_id", f.ProfileID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
