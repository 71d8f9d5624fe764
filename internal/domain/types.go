// Package domain contains the core entities shared by the scoring engine,
// the persistence layer and the HTTP surface of the clinic self-assessment
// server.
//
// Everything in this package is plain data: no I/O, no global state.
package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Gender is the patient gender recognised by the symptom catalog.
// Categories may be restricted to one gender; unrestricted categories apply
// to both.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Validation errors for assessment input
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidGender  = errors.New("invalid gender")
	ErrGenderMismatch = errors.New("selection references a category not applicable to gender")
	ErrUnauthorized   = errors.New("unauthorized")
)

// ParseGender normalises raw input ("Female ", "MALE") into a Gender.
// Unrecognised values return ErrInvalidGender.
func ParseGender(raw string) (Gender, error) {
	g := Gender(strings.ToLower(strings.TrimSpace(raw)))
	if !g.IsValid() {
		return "", ErrInvalidGender
	}
	return g, nil
}

// IsValid reports whether g is one of the two recognised values.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	default:
		return false
	}
}

// String returns the string representation of the gender.
func (g Gender) String() string {
	return string(g)
}

// QuestionRef identifies one question of the catalog.
type QuestionRef struct {
	Category string `json:"category"`
	Question string `json:"question"`
}

// Selection is the set of questions a patient marked during one assessment.
type Selection map[QuestionRef]struct{}

// NewSelection builds a Selection from refs. Duplicates collapse.
func NewSelection(refs ...QuestionRef) Selection {
	s := make(Selection, len(refs))
	for _, ref := range refs {
		s[ref] = struct{}{}
	}
	return s
}

// Has reports whether ref is selected.
func (s Selection) Has(ref QuestionRef) bool {
	_, ok := s[ref]
	return ok
}

// Without returns a copy of s that drops every ref whose category is in
// categories.
func (s Selection) Without(categories map[string]bool) Selection {
	out := make(Selection, len(s))
	for ref := range s {
		if categories[ref.Category] {
			continue
		}
		out[ref] = struct{}{}
	}
	return out
}

// Refs returns the selected refs ordered by category then question, so that
// persisted blobs are stable.
func (s Selection) Refs() []QuestionRef {
	refs := make([]QuestionRef, 0, len(s))
	for ref := range s {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Category != refs[j].Category {
			return refs[i].Category < refs[j].Category
		}
		return refs[i].Question < refs[j].Question
	})
	return refs
}

// ScoreBreakdown is the per-category score of one assessment.
type ScoreBreakdown struct {
	Score    int  `json:"score"`
	MaxScore int  `json:"maxScore"`
	Skipped  bool `json:"skipped"`
}

// PatientInfo is the identity captured on the intake form.
type PatientInfo struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	Gender    Gender `json:"gender"`
	Phone     string `json:"phone"`
}

// AssessmentResult is one persisted submission. Only AgreedToTreatment
// changes after creation.
type AssessmentResult struct {
	ID                int64                     `json:"id"`
	Patient           PatientInfo               `json:"patient"`
	TotalScore        int                       `json:"totalScore"`
	NormalizedScore   int                       `json:"normalizedScore"`
	TierLevel         int                       `json:"tierLevel"`
	TierLabel         string                    `json:"tierLabel"`
	SectionScores     map[string]ScoreBreakdown `json:"sectionScores"`
	SelectedItems     []QuestionRef             `json:"selectedItems"`
	SkippedSections   []string                  `json:"skippedSections"`
	AgreedToTreatment bool                      `json:"agreedToTreatment"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

// ListFilter narrows AssessmentStore.List. Zero values mean "no filter".
type ListFilter struct {
	From   time.Time
	To     time.Time
	Search string
	Limit  int
}

// MaxListLimit caps every listing, matching the dashboard page size.
const MaxListLimit = 100

// EffectiveLimit clamps Limit into (0, MaxListLimit].
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		return MaxListLimit
	}
	return f.Limit
}

// Totals aggregates every stored assessment.
type Totals struct {
	Count        int64   `json:"total_count"`
	AverageScore float64 `json:"total_avg_score"`
}

// ScoreRecord is the slice of a result the dashboard statistics need.
type ScoreRecord struct {
	CreatedAt       time.Time
	NormalizedScore int
	Agreed          bool
}
