package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

// ExportXLSX returns an XLSX workbook (as bytes) for the filtered
// extractions.
func (s *Service) ExportXLSX(ctx context.Context, f repository.ExtractionFilter) ([]byte, error) {
	start := time.Now()
	rows, err := s.collect(ctx, f)
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	sheet := "Receipts"
	headers := receiptHeaders
	if f.DocType == constants.Resume {
		sheet = "Resumes"
		headers = resumeHeaders
	}
	if index, _ := wb.GetSheetIndex(sheet); index == -1 {
		if _, err := wb.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := wb.GetSheetIndex(sheet)
	wb.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}

	rowIdx := 2
	for _, r := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx)
			_ = wb.SetCellValue(sheet, cell, v)
		}
		if f.DocType == constants.Resume {
			write(1, r.FileName)
			write(2, r.FullName)
			write(3, r.Category)
			write(4, r.YearsExperience)
			write(5, r.HighestEducation)
			write(6, strconv.FormatBool(r.NeedsReview))
		} else {
			write(1, r.FileName)
			write(2, r.MerchantName)
			write(3, r.TxDate)
			write(4, r.Total)
			write(5, r.CurrencyCode)
			write(6, r.Category)
			write(7, r.Items)
			write(8, strconv.FormatBool(r.NeedsReview))
		}
		rowIdx++
	}

	_ = wb.SetColWidth(sheet, "A", "A", 32)
	_ = wb.SetColWidth(sheet, "B", "B", 26)
	_ = wb.SetColWidth(sheet, "C", "C", 14)
	_ = wb.SetColWidth(sheet, "D", "F", 16)
	_ = wb.SetColWidth(sheet, "G", "G", 48)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"profile_id", f.ProfileID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
