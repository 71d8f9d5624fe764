package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clinic-assessment-server/internal/domain"
)

const (
	maxNameLength  = 50
	minPhoneLength = 4
	maxPhoneLength = 20
)

var phonePattern = regexp.MustCompile(`^[0-9-]+$`)

// SubmitRequest is one completed questionnaire as posted by the intake form.
type SubmitRequest struct {
	Name       string               `json:"name"`
	BirthDate  string               `json:"birthDate"`
	Gender     string               `json:"gender"`
	Phone      string               `json:"phone"`
	Selections []domain.QuestionRef `json:"selections"`
	Skipped    []string             `json:"skippedSections"`
}

// patient validates the identity fields and returns them normalised.
func (r SubmitRequest) patient() (domain.PatientInfo, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return domain.PatientInfo{}, domain.NewValidationError("name", "name is required", r.Name)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return domain.PatientInfo{}, domain.NewValidationError("name", "name must be at most 50 characters", r.Name)
	}

	birthDate := strings.TrimSpace(r.BirthDate)
	if !validBirthDate(birthDate) {
		return domain.PatientInfo{}, domain.NewValidationError("birthDate", "birth date must be YYMMDD or YYYY-MM-DD", r.BirthDate)
	}

	gender, err := domain.ParseGender(r.Gender)
	if err != nil {
		return domain.PatientInfo{}, domain.NewValidationError("gender", "gender must be male or female", r.Gender)
	}

	phone := strings.TrimSpace(r.Phone)
	if len(phone) < minPhoneLength || len(phone) > maxPhoneLength || !phonePattern.MatchString(phone) {
		return domain.PatientInfo{}, domain.NewValidationError("phone", "phone must be 4-20 digits or dashes", r.Phone)
	}

	return domain.PatientInfo{
		Name:      name,
		BirthDate: birthDate,
		Gender:    gender,
		Phone:     phone,
	}, nil
}

func validBirthDate(s string) bool {
	switch len(s) {
	case 6:
		_, err := time.Parse("060102", s)
		return err == nil
	case 10:
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	default:
		return false
	}
}
