package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// utf8BOM lets spreadsheet applications detect the encoding of the export.
const utf8BOM = "\ufeff"

var exportHeader = []string{
	"name", "birth_date", "gender", "phone",
	"total_score", "normalized_score", "tier", "agreed", "created_at",
}

// ExportCSV writes the results matching q as CSV to w. Timestamps are in
// the clinic time zone. It returns the number of rows written.
func (s *AssessmentService) ExportCSV(ctx context.Context, w io.Writer, q ListQuery) (int, error) {
	results, err := s.List(ctx, q)
	if err != nil {
		return 0, err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range results {
		agreed := "N"
		if r.AgreedToTreatment {
			agreed = "Y"
		}
		rec := []string{
			r.Patient.Name,
			r.Patient.BirthDate,
			r.Patient.Gender.String(),
			r.Patient.Phone,
			strconv.Itoa(r.TotalScore),
			strconv.Itoa(r.NormalizedScore),
			s.Report(r).Label,
			agreed,
			r.CreatedAt.In(s.loc).Format(time.DateTime),
		}
		if err := cw.Write(rec); err != nil {
			return 0, fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(results), nil
}
