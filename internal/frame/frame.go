// Package frame decodes the tabular JSON payload of a forecast request into
// rows that remember the order in which columns first appeared.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	// ErrNotArray is returned when the payload is not a JSON array
	ErrNotArray = errors.New("data must be an array of records")
	// ErrRowNotObject is returned when an array element is not a JSON object
	ErrRowNotObject = errors.New("each record must be a JSON object")
	// ErrEmpty is returned for an empty array
	ErrEmpty = errors.New("data must contain at least one record")
)

// extra layouts tried after cast's built-in list
var fallbackLayouts = []string{
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"2006-01",
}

// Record is one row keyed by column header
type Record map[string]interface{}

// Table is an ordered set of records
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable builds a table from rows with an explicit column order
func NewTable(columns []string, rows []Record) *Table {
	t := &Table{Rows: rows}
	seen := make(map[string]struct{})
	for _, c := range columns {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			t.Columns = append(t.Columns, c)
		}
	}
	return t
}

// Decode parses a JSON array of objects.
func Decode(raw []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, ErrNotArray
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, ErrNotArray
	}

	t := &Table{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid record: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, ErrRowNotObject
		}
		keys, values, err := decodeObjectBody(dec)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, values)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid data array: %w", err)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmpty
	}
	return t, nil
}

// ObjectKeys returns the top-level keys of a JSON object in document order
// along with the decoded values.
func ObjectKeys(raw []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("request body must be a JSON object")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		key := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("unexpected data after JSON body")
	}
	return keys, values, nil
}

func decodeObjectBody(dec *json.Decoder) ([]string, Record, error) {
	var keys []string
	row := make(Record)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid record: %w", err)
		}
		key := tok.(string)
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("invalid record: %w", err)
	}
	return keys, row, nil
}

// Float coerces a cell to float64. Missing, boolean, empty and non-numeric
// values report ok=false.
func (r Record) Float(col string) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := r[col].(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		f, err = v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err = cast.ToFloat64E(s)
	default:
		f, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Time parses a cell as a timestamp in UTC. Only non-empty strings are
// considered; numbers are not treated as epochs.
func (r Record) Time(col string) (time.Time, bool) {
	s, ok := r[col].(string)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(s)
}

// ParseTime parses common date and datetime layouts in UTC
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := cast.ToTimeInDefaultLocationE(s, time.UTC); err == nil {
		return t.UTC(), true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Has reports whether the column is present in the record
func (r Record) Has(col string) bool {
	_, ok := r[col]
	return ok
}
