package scoring

import (
	"fmt"
	"strings"
)

// Category is one of the six fixed skill areas scored per test.
type Category string

const (
	Textaufgaben     Category = "Textaufgaben"     // word problems
	Raumvorstellung  Category = "Raumvorstellung"  // spatial reasoning
	Gleichungen      Category = "Gleichungen"      // equations
	Brueche          Category = "Brueche"          // fractions
	Grundrechenarten Category = "Grundrechenarten" // basic arithmetic
	Zahlenraum       Category = "Zahlenraum"       // number range
)

// Categories lists the closed set in canonical order.
var Categories = [...]Category{
	Textaufgaben,
	Raumvorstellung,
	Gleichungen,
	Brueche,
	Grundrechenarten,
	Zahlenraum,
}

// TotalPoints is the required sum of category maxima for one test.
const TotalPoints = 100

// Key is the lower-case storage/column prefix for the category.
func (c Category) Key() string { return strings.ToLower(string(c)) }

// Valid reports whether c is one of the six categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// ParseCategory accepts the canonical name, the storage key, or the
// umlaut spelling used on paper forms ("Brüche").
func ParseCategory(s string) (Category, error) {
	norm := strings.TrimSpace(s)
	norm = strings.ReplaceAll(norm, "ü", "ue")
	norm = strings.ReplaceAll(norm, "Ü", "Ue")
	for _, c := range Categories {
		if strings.EqualFold(norm, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Points is an (achieved, max) pair for one category.
type Points struct {
	Achieved int `json:"achieved"`
	Max      int `json:"max"`
}
