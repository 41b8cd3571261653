package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Maturity labels follow the "<count>-<Unit>" convention used by treasury
// listings, e.g. "26-Week" or "10-Year". A year is 365 days, a week 7.

const (
	daysPerYear = 365.0
	daysPerWeek = 7.0
)

// ErrBadTermFormat is returned for labels that are not "<count>-<unit>".
var ErrBadTermFormat = fmt.Errorf("term must look like \"<count>-<unit>\"")

// ErrUnknownTermUnit is returned for units other than Week or Year.
// An unrecognized unit is an error rather than a silent no-op multiplier.
var ErrUnknownTermUnit = fmt.Errorf("unknown term unit")

// ParseTerm converts a maturity label into fractional years.
// Units are matched case-insensitively and an optional trailing "s" is
// accepted ("10-Years" parses the same as "10-Year").
func ParseTerm(label string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadTermFormat, label)
	}

	count, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTermFormat, label)
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	unit = strings.TrimSuffix(unit, "s")
	switch unit {
	case "week":
		return count * daysPerWeek / daysPerYear, nil
	case "year":
		return count, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTermUnit, parts[1])
	}
}
