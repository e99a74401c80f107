// Package preprocess turns a raw request table into a clean series on a
// regular period grid.
package preprocess

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soltixdb/forecaster/internal/frame"
)

// ErrColumnNotFound is returned when a required role has no usable column
var ErrColumnNotFound = errors.New("required column not found")

// DefaultDateAliases are tried in order for the date role
var DefaultDateAliases = []string{"tarih", "date", "gun", "day", "zaman", "time"}

// DefaultTargetAliases are tried in order for the target role
var DefaultTargetAliases = []string{"satis", "sales", "miktar", "quantity", "adet", "amount", "value", "satis_miktari"}

// DetectedColumns names the headers chosen for each role
type DetectedColumns struct {
	Date   string
	Target string
}

// Detector picks the date and target columns of a table
type Detector struct {
	dateAliases   []string
	targetAliases []string
}

// NewDetector creates a detector with the given alias lists. Nil lists fall
// back to the defaults.
func NewDetector(dateAliases, targetAliases []string) *Detector {
	if dateAliases == nil {
		dateAliases = DefaultDateAliases
	}
	if targetAliases == nil {
		targetAliases = DefaultTargetAliases
	}
	return &Detector{dateAliases: dateAliases, targetAliases: targetAliases}
}

// Detect resolves both roles. Aliases match headers case-insensitively and
// are tried in priority order. The date role falls back to the first column
// whose every row parses as a timestamp; the target role has no fallback.
func (d *Detector) Detect(table *frame.Table) (DetectedColumns, error) {
	lower := make(map[string]string, len(table.Columns))
	for _, c := range table.Columns {
		key := strings.ToLower(c)
		// last header wins on case-only collisions
		lower[key] = c
	}

	date, ok := matchAlias(lower, d.dateAliases)
	if !ok {
		date, ok = firstTimeColumn(table)
	}
	if !ok {
		return DetectedColumns{}, fmt.Errorf("%w: no date column", ErrColumnNotFound)
	}

	target, ok := matchAlias(lower, d.targetAliases)
	if !ok {
		return DetectedColumns{}, fmt.Errorf("%w: no target column", ErrColumnNotFound)
	}

	return DetectedColumns{Date: date, Target: target}, nil
}

func matchAlias(lower map[string]string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if col, ok := lower[strings.ToLower(alias)]; ok {
			return col, true
		}
	}
	return "", false
}

func firstTimeColumn(table *frame.Table) (string, bool) {
	for _, col := range table.Columns {
		if columnIsTime(table, col) {
			return col, true
		}
	}
	return "", false
}

func columnIsTime(table *frame.Table, col string) bool {
	if len(table.Rows) == 0 {
		return false
	}
	for _, row := range table.Rows {
		if _, ok := row.Time(col); !ok {
			return false
		}
	}
	return true
}
