// Package repository persists assessment results in Postgres (pgx) or
// SQLite. Both stores keep the breakdown, selection and skipped categories
// as JSON documents next to the scalar score columns.
package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinic-assessment-server/internal/domain"
)

// jsonColumns holds the encoded document columns of one result.
type jsonColumns struct {
	sections []byte
	selected []byte
	skipped  []byte
}

func encodeColumns(r *domain.AssessmentResult) (jsonColumns, error) {
	var (
		cols jsonColumns
		err  error
	)
	sections := r.SectionScores
	if sections == nil {
		sections = map[string]domain.ScoreBreakdown{}
	}
	if cols.sections, err = json.Marshal(sections); err != nil {
		return cols, fmt.Errorf("encoding section scores: %w", err)
	}
	selected := r.SelectedItems
	if selected == nil {
		selected = []domain.QuestionRef{}
	}
	if cols.selected, err = json.Marshal(selected); err != nil {
		return cols, fmt.Errorf("encoding selected items: %w", err)
	}
	skipped := r.SkippedSections
	if skipped == nil {
		skipped = []string{}
	}
	if cols.skipped, err = json.Marshal(skipped); err != nil {
		return cols, fmt.Errorf("encoding skipped sections: %w", err)
	}
	return cols, nil
}

func (c jsonColumns) decodeInto(r *domain.AssessmentResult) error {
	if err := json.Unmarshal(c.sections, &r.SectionScores); err != nil {
		return fmt.Errorf("decoding section scores: %w", err)
	}
	if err := json.Unmarshal(c.selected, &r.SelectedItems); err != nil {
		return fmt.Errorf("decoding selected items: %w", err)
	}
	if err := json.Unmarshal(c.skipped, &r.SkippedSections); err != nil {
		return fmt.Errorf("decoding skipped sections: %w", err)
	}
	return nil
}

// likePattern turns a search term into a lower-cased substring LIKE pattern
// with the wildcard characters of the term escaped by a backslash. Stores
// compare it against the lower-cased name.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
