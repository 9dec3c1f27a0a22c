// Package profile holds the profile domain model, its validation rules and
// the persistence layer for the profile graph (user + optional spouse +
// children).
package profile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateLayout = "MM/DD/YYYY"

var dateOfBirthPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

type NameComponents struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
}

// PersonProfile is the shared shape of user, spouse and child records.
// DateOfBirth, when present, is an MM/DD/YYYY string.
type PersonProfile struct {
	Name        NameComponents `json:"name"`
	DateOfBirth string         `json:"dateOfBirth,omitempty"`
}

type UserProfile struct {
	PersonProfile
	Address          string    `json:"address"`
	ProfileComplete  bool      `json:"profileComplete"`
	ProfileCreatedAt time.Time `json:"profileCreatedAt"`
	ProfileUpdatedAt time.Time `json:"profileUpdatedAt"`
}

type SpouseProfile struct {
	PersonProfile
}

type ChildProfile struct {
	PersonProfile
	ID                    string   `json:"id,omitempty"`
	Interests             []string `json:"interests"`
	MedicalConsiderations []string `json:"medicalConsiderations"`
}

// ParseFullName splits a free-form full name into components: two tokens map
// to first/last, more than two keep the first and last tokens and join the
// interior as the middle name.
func ParseFullName(fullName string) (NameComponents, error) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	switch {
	case len(parts) == 2:
		return NameComponents{FirstName: parts[0], LastName: parts[1]}, nil
	case len(parts) > 2:
		return NameComponents{
			FirstName:  parts[0],
			MiddleName: strings.Join(parts[1:len(parts)-1], " "),
			LastName:   parts[len(parts)-1],
		}, nil
	default:
		return NameComponents{}, &ValidationError{Violations: []FieldViolation{
			{Field: "fullName", Message: "name must include at least first and last name"},
		}}
	}
}

func (n *NameComponents) normalize() {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.MiddleName = strings.TrimSpace(n.MiddleName)
	n.LastName = strings.TrimSpace(n.LastName)
}

func (n NameComponents) validate(prefix string, violations *[]FieldViolation) {
	if strings.TrimSpace(n.FirstName) == "" {
		*violations = append(*violations, FieldViolation{Field: prefix + "firstName", Message: "name parts cannot be empty"})
	}
	if strings.TrimSpace(n.LastName) == "" {
		*violations = append(*violations, FieldViolation{Field: prefix + "lastName", Message: "name parts cannot be empty"})
	}
}

// parseDateOfBirth validates the MM/DD/YYYY shape and returns the component
// values; calendar-level plausibility is checked separately against now.
func parseDateOfBirth(value string) (month, day, year int, err error) {
	if !dateOfBirthPattern.MatchString(value) {
		return 0, 0, 0, fmt.Errorf("date must be in %s format", dateLayout)
	}
	if _, scanErr := fmt.Sscanf(value, "%02d/%02d/%04d", &month, &day, &year); scanErr != nil {
		return 0, 0, 0, fmt.Errorf("date must be in %s format", dateLayout)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("invalid month or day")
	}
	return month, day, year, nil
}

func validateDateOfBirth(value string, now time.Time, violations *[]FieldViolation) {
	if strings.TrimSpace(value) == "" {
		return
	}
	month, day, year, err := parseDateOfBirth(value)
	if err != nil {
		*violations = append(*violations, FieldViolation{Field: "dateOfBirth", Message: "date validation error: " + err.Error()})
		return
	}
	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if dob.After(now) {
		*violations = append(*violations, FieldViolation{Field: "dateOfBirth", Message: "date validation error: date of birth cannot be in the future"})
		return
	}
	if ageAt(month, day, year, now) > 120 {
		*violations = append(*violations, FieldViolation{Field: "dateOfBirth", Message: "date validation error: age exceeds reasonable limit"})
	}
}

// ageAt computes whole years between the birth date and now.
func ageAt(month, day, year int, now time.Time) int {
	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	return age
}

// AgeFromDateOfBirth returns the whole-year age for an MM/DD/YYYY value,
// or -1 when the value does not parse.
func AgeFromDateOfBirth(value string, now time.Time) int {
	month, day, year, err := parseDateOfBirth(value)
	if err != nil {
		return -1
	}
	return ageAt(month, day, year, now)
}

func (p *PersonProfile) validateAt(now time.Time, violations *[]FieldViolation) {
	p.Name.normalize()
	p.Name.validate("", violations)
	validateDateOfBirth(p.DateOfBirth, now, violations)
}

// ValidateAt checks name parts and date-of-birth plausibility against the
// given reference time.
func (p *PersonProfile) ValidateAt(now time.Time) error {
	var violations []FieldViolation
	p.validateAt(now, &violations)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateAt additionally requires an address with at least street and city,
// separated by commas.
func (u *UserProfile) ValidateAt(now time.Time) error {
	var violations []FieldViolation
	u.validateAt(now, &violations)

	u.Address = strings.TrimSpace(u.Address)
	if u.Address == "" {
		violations = append(violations, FieldViolation{Field: "address", Message: "address cannot be empty"})
	} else if len(strings.Split(u.Address, ",")) < 2 {
		violations = append(violations, FieldViolation{Field: "address", Message: "address must include at least street and city, separated by commas"})
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (s *SpouseProfile) ValidateAt(now time.Time) error {
	return s.PersonProfile.ValidateAt(now)
}

// ValidateAt enforces the child-specific age ceiling on top of the shared
// person checks: a child's computed age must be under 18.
func (c *ChildProfile) ValidateAt(now time.Time) error {
	var violations []FieldViolation
	c.validateAt(now, &violations)

	if strings.TrimSpace(c.DateOfBirth) != "" && len(violations) == 0 {
		if AgeFromDateOfBirth(c.DateOfBirth, now) >= 18 {
			violations = append(violations, FieldViolation{Field: "dateOfBirth", Message: "child's age must be under 18"})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
