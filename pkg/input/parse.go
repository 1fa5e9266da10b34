package input

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i, nil
	}
	// counts exported by spreadsheet tools look like "1200.0"
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0, fmt.Errorf("integer %q out of range", v)
	}
	return int(f), nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "0", "false", "f", "no", "n", "none", "null":
		return false, nil
	case "1", "true", "t", "yes", "y":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}

// parseOptionalFloat returns nil for empty and null-like values.
func parseOptionalFloat(v string) (*float64, error) {
	switch strings.ToLower(v) {
	case "", "null", "none", "nan", "n/a":
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return &f, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
