package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidScore matches every *InvalidScoreError via errors.Is.
var ErrInvalidScore = errors.New("invalid score")

type ErrorKind string

const (
	SumMismatch       ErrorKind = "sum_mismatch"
	MissingCategory   ErrorKind = "missing_category"
	UnknownCategory   ErrorKind = "unknown_category"
	DuplicateCategory ErrorKind = "duplicate_category"
	MaxBelowOne       ErrorKind = "max_below_one"
	NegativeAchieved  ErrorKind = "negative_achieved"
	AchievedAboveMax  ErrorKind = "achieved_above_max"
)

// InvalidScoreError rejects a point allocation before anything is stored.
type InvalidScoreError struct {
	Kind     ErrorKind
	Category Category // empty for SumMismatch
	Sum      int      // set for SumMismatch
}

func (e *InvalidScoreError) Error() string {
	switch e.Kind {
	case SumMismatch:
		return fmt.Sprintf("invalid score: category maxima sum to %d, must be exactly %d", e.Sum, TotalPoints)
	case MissingCategory:
		return fmt.Sprintf("invalid score: category %s missing", e.Category)
	case UnknownCategory:
		return fmt.Sprintf("invalid score: unknown category %q", string(e.Category))
	case DuplicateCategory:
		return fmt.Sprintf("invalid score: category %s given more than once", e.Category)
	case MaxBelowOne:
		return fmt.Sprintf("invalid score: %s maximum must be at least 1", e.Category)
	case NegativeAchieved:
		return fmt.Sprintf("invalid score: %s achieved points must not be negative", e.Category)
	case AchievedAboveMax:
		return fmt.Sprintf("invalid score: %s achieved points exceed maximum", e.Category)
	}
	return "invalid score: " + string(e.Kind)
}

func (e *InvalidScoreError) Is(target error) bool { return target == ErrInvalidScore }

// Validate checks the category maxima of one test: all six categories,
// each at least 1, summing to exactly TotalPoints.
func Validate(maxima map[Category]int) error {
	for c := range maxima {
		if !c.Valid() {
			return &InvalidScoreError{Kind: UnknownCategory, Category: c}
		}
	}
	sum := 0
	for _, c := range Categories {
		m, ok := maxima[c]
		if !ok {
			return &InvalidScoreError{Kind: MissingCategory, Category: c}
		}
		if m < 1 {
			return &InvalidScoreError{Kind: MaxBelowOne, Category: c}
		}
		sum += m
	}
	if sum != TotalPoints {
		return &InvalidScoreError{Kind: SumMismatch, Sum: sum}
	}
	return nil
}

// ValidateScores checks achieved points against their maxima and then
// applies Validate to the maxima.
func ValidateScores(scores map[Category]Points) error {
	maxima := make(map[Category]int, len(scores))
	for c, p := range scores {
		maxima[c] = p.Max
	}
	if err := Validate(maxima); err != nil {
		return err
	}
	for _, c := range Categories {
		p := scores[c]
		if p.Achieved < 0 {
			return &InvalidScoreError{Kind: NegativeAchieved, Category: c}
		}
		if p.Achieved > p.Max {
			return &InvalidScoreError{Kind: AchievedAboveMax, Category: c}
		}
	}
	return nil
}
