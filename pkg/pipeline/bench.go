package pipeline

import (
	"strings"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/probe"
	"github.com/mchmarny/scirank/pkg/resolve"
)

// benchIndex finds the bench entry of a tool. Result files name tools by
// identifier, by repository name or by package, so all three are indexed.
type benchIndex struct {
	byID   map[string]*input.Bench
	byName map[string]*input.Bench
}

func newBenchIndex(list []input.Bench) *benchIndex {
	idx := &benchIndex{
		byID:   make(map[string]*input.Bench, len(list)),
		byName: make(map[string]*input.Bench, len(list)),
	}
	for i := range list {
		b := &list[i]
		key := strings.ToLower(strings.TrimSpace(b.Name))
		if key == "" {
			continue
		}
		// first entry wins
		if strings.Contains(key, "/") {
			if _, ok := idx.byID[key]; !ok {
				idx.byID[key] = b
			}
			continue
		}
		n := resolve.Normalize(key)
		if _, ok := idx.byName[n]; !ok {
			idx.byName[n] = b
		}
	}
	return idx
}

func (idx *benchIndex) lookup(t resolve.ToolRecord) *input.Bench {
	if b, ok := idx.byID[strings.ToLower(t.Identifier)]; ok {
		return b
	}
	if _, name, ok := resolve.SplitIdentifier(t.Identifier); ok {
		if b, ok := idx.byName[resolve.Normalize(name)]; ok {
			return b
		}
	}
	if pkg, ok := t.Resolution.Package(); ok {
		if b, ok := idx.byName[resolve.Normalize(pkg)]; ok {
			return b
		}
	}
	return nil
}

// FromProbes converts stored probe outcomes to bench entries.
func FromProbes(list []*data.Probe) []input.Bench {
	out := make([]input.Bench, 0, len(list))
	for _, p := range list {
		if p == nil {
			continue
		}
		out = append(out, input.Bench{
			Name:    p.Identifier,
			Passed:  p.Passed,
			Latency: p.Latency,
			Detail:  p.Error,
		})
	}
	return out
}

// FromResults converts probe results to bench entries.
func FromResults(list []probe.Result) []input.Bench {
	out := make([]input.Bench, 0, len(list))
	for _, r := range list {
		out = append(out, input.Bench{
			Name:    r.Identifier,
			Passed:  r.Passed,
			Latency: r.Latency,
			Detail:  r.Error,
		})
	}
	return out
}

// ToProbes converts probe results for storage.
func ToProbes(list []probe.Result, probedAt string) []*data.Probe {
	out := make([]*data.Probe, 0, len(list))
	for _, r := range list {
		out = append(out, &data.Probe{
			Identifier: r.Identifier,
			Package:    r.Package,
			Module:     r.Module,
			Passed:     r.Passed,
			Latency:    r.Latency,
			Version:    r.Version,
			Error:      r.Error,
			ProbedAt:   probedAt,
		})
	}
	return out
}
