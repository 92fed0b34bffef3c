package course

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Status is active while the exit date lies strictly after today. A
// participant leaving today is already inactive.
func (p Participant) Status(today Date) Status {
	if p.ExitDate.After(today) {
		return StatusActive
	}
	return StatusInactive
}

// BirthDate decodes the DDMMYY tail of the national id. Two-digit years
// up to today's are this century, later ones the previous.
func (p Participant) BirthDate(today Date) (Date, error) {
	return birthDateFromNationalID(p.NationalID, today)
}

// Age in completed years at today; 0 when the national id does not decode.
func (p Participant) Age(today Date) int {
	b, err := p.BirthDate(today)
	if err != nil {
		return 0
	}
	age := today.Year() - b.Year()
	if today.Month() < b.Month() || (today.Month() == b.Month() && today.Day() < b.Day()) {
		age--
	}
	return age
}

func birthDateFromNationalID(id string, today Date) (Date, error) {
	if !isTenDigits(id) {
		return Date{}, &ValidationError{Field: "national_id", Reason: "must consist of exactly 10 digits"}
	}
	day, _ := strconv.Atoi(id[4:6])
	month, _ := strconv.Atoi(id[6:8])
	yy, _ := strconv.Atoi(id[8:10])
	year := 1900 + yy
	if yy <= today.Year()%100 {
		year = 2000 + yy
	}
	if month < 1 || month > 12 || day < 1 {
		return Date{}, &ValidationError{Field: "national_id", Reason: "does not encode a valid birth date"}
	}
	d := NewDate(year, time.Month(month), day)
	if d.Day() != day {
		// time.Date normalised an overflowing day (e.g. 31.02.)
		return Date{}, &ValidationError{Field: "national_id", Reason: "does not encode a valid birth date"}
	}
	return d, nil
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsUpperLabel reports whether s has at least one letter and no
// lower-case letters. Digits, spaces and punctuation are allowed.
func IsUpperLabel(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// Validate checks a participant record as entered; today decides the
// century of the birth year.
func (p *Participant) Validate(today Date) error {
	p.Name = strings.TrimSpace(p.Name)
	p.NationalID = strings.TrimSpace(p.NationalID)
	p.Occupation = strings.TrimSpace(p.Occupation)

	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if _, err := birthDateFromNationalID(p.NationalID, today); err != nil {
		return err
	}
	if !IsUpperLabel(p.Occupation) {
		return &ValidationError{Field: "occupation", Reason: "must be entered in upper-case letters"}
	}
	if p.EntryDate.IsZero() {
		return &ValidationError{Field: "entry_date", Reason: "required"}
	}
	if p.ExitDate.IsZero() {
		return &ValidationError{Field: "exit_date", Reason: "required"}
	}
	if p.ExitDate.Before(p.EntryDate) {
		return &ValidationError{Field: "exit_date", Reason: "must not be before entry date"}
	}
	return nil
}
