package resolve

import (
	"bufio"
	"fmt"
	"io"
)

// Requirements lists the installable packages of tools in order: OK
// packages and UNKNOWN candidates, once per normalized name. SKIPPED tools
// and UNKNOWN tools without a candidate are left out.
func Requirements(tools []ToolRecord) []string {
	seen := make(map[string]bool, len(tools))
	list := make([]string, 0, len(tools))
	for _, t := range tools {
		pkg, ok := t.Resolution.Package()
		if !ok || pkg == "" {
			continue
		}
		key := Normalize(pkg)
		if seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, pkg)
	}
	return list
}

// WriteRequirements writes Requirements(tools) one package per line.
func WriteRequirements(w io.Writer, tools []ToolRecord) error {
	bw := bufio.NewWriter(w)
	for _, pkg := range Requirements(tools) {
		if _, err := fmt.Fprintln(bw, pkg); err != nil {
			return fmt.Errorf("error writing requirements: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error writing requirements: %w", err)
	}
	return nil
}
