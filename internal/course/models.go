package course

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateNationalID = errors.New("national id already registered")
)

// ValidationError rejects caller input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"` // XXXXDDMMYY
	Occupation string `json:"occupation"`  // upper-case label
	EntryDate  Date   `json:"entry_date"`
	ExitDate   Date   `json:"exit_date"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// TestResult is one recorded test; the embedded aggregate carries the
// six category scores and the overall percentage.
type TestResult struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participant_id"`
	TestDate      Date   `json:"test_date"`
	Seq           int64  `json:"seq"` // insertion order, tiebreak for equal dates
	scoring.Aggregated
	CreatedAt int64 `json:"created_at,omitempty"`
}
