package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Bench is one benchmark observation. Passed is meaningless when Skipped.
type Bench struct {
	Name    string   `json:"name" yaml:"name"`
	Passed  bool     `json:"passed" yaml:"passed"`
	Latency *float64 `json:"latency,omitempty" yaml:"latency,omitempty"`
	Skipped bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Detail  string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// benchJSON accepts both the scirank export and older result files.
type benchJSON struct {
	Identifier *string  `json:"identifier"`
	Name       *string  `json:"name"`
	Passed     *bool    `json:"passed"`
	Latency    *float64 `json:"latency"`
	ElapsedS   *float64 `json:"elapsed_s"`
	Skipped    *bool    `json:"skipped"`
	Detail     string   `json:"detail"`
	Error      string   `json:"error"`
}

// LoadBench reads benchmark results as JSON (an array) or CSV, sniffed from
// the first non-blank byte.
func LoadBench(r io.Reader, source string) ([]Bench, []Flagged, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("%s: empty bench input", source)
	}

	if trimmed[0] == '[' {
		return loadBenchJSON(bytes.NewReader(trimmed), source)
	}
	return loadBenchCSV(bytes.NewReader(b), source)
}

func loadBenchJSON(r io.Reader, source string) ([]Bench, []Flagged, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, nil, fmt.Errorf("%s: error decoding bench JSON: %w", source, err)
	}

	list := make([]Bench, 0, len(items))
	flagged := make([]Flagged, 0)
	for i, raw := range items {
		var it benchJSON
		if err := json.Unmarshal(raw, &it); err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: i + 1, Reason: err.Error()})
			continue
		}

		b := Bench{Detail: it.Detail}
		if b.Detail == "" {
			b.Detail = it.Error
		}
		switch {
		case it.Identifier != nil && strings.TrimSpace(*it.Identifier) != "":
			b.Name = strings.TrimSpace(*it.Identifier)
		case it.Name != nil:
			b.Name = strings.TrimSpace(*it.Name)
		}
		if b.Name == "" {
			flagged = append(flagged, Flagged{Source: source, Line: i + 1, Reason: "missing identifier"})
			continue
		}

		b.Skipped = it.Skipped != nil && *it.Skipped
		b.Passed = !b.Skipped && it.Passed != nil && *it.Passed
		b.Latency = it.Latency
		if b.Latency == nil {
			b.Latency = it.ElapsedS
		}
		if b.Latency != nil && *b.Latency < 0 {
			flagged = append(flagged, Flagged{Source: source, Line: i + 1, Identifier: b.Name, Reason: "negative latency"})
			continue
		}
		list = append(list, b)
	}
	return list, flagged, nil
}

func loadBenchCSV(r io.Reader, source string) ([]Bench, []Flagged, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	names := []string{"identifier", "name", "repo"}
	if !t.has(names...) {
		return nil, nil, fmt.Errorf("%s: missing identifier column (one of %s)", source, strings.Join(names, ", "))
	}

	list := make([]Bench, 0)
	flagged := make([]Flagged, 0)
	for line := 2; ; line++ {
		rec, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Reason: err.Error()})
			continue
		}

		b := Bench{Name: t.get(rec, names...), Detail: t.get(rec, "detail", "error")}
		if b.Name == "" {
			flagged = append(flagged, Flagged{Source: source, Line: line, Reason: "missing identifier"})
			continue
		}

		if b.Skipped, err = parseBool(t.get(rec, "skipped")); err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: b.Name, Reason: "skipped: " + err.Error()})
			continue
		}
		if b.Passed, err = parseBool(t.get(rec, "passed")); err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: b.Name, Reason: "passed: " + err.Error()})
			continue
		}
		b.Passed = b.Passed && !b.Skipped

		if b.Latency, err = parseOptionalFloat(t.get(rec, "latency", "elapsed_s")); err != nil {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: b.Name, Reason: "latency: " + err.Error()})
			continue
		}
		if b.Latency != nil && *b.Latency < 0 {
			flagged = append(flagged, Flagged{Source: source, Line: line, Identifier: b.Name, Reason: "negative latency"})
			continue
		}
		list = append(list, b)
	}
	return list, flagged, nil
}
