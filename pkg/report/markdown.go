package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")

func writeMarkdown(w io.Writer, d *Document) error {
	if _, err := io.WriteString(w, Markdown(d)); err != nil {
		return fmt.Errorf("error writing markdown: %w", err)
	}
	return nil
}

// Markdown renders d. It does not validate, use Write for that.
func Markdown(d *Document) string {
	b := &strings.Builder{}
	bl := d.blend()
	fmt.Fprintf(b, "# %s\n\n", d.title())
	if !d.GeneratedAt.IsZero() {
		fmt.Fprintf(b, "Generated %s. ", d.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(b, "`final_score = %.2f * composite_v2 + %.2f * bench_score`\n\n", bl.Repo, bl.Bench)

	if d.Empty() {
		b.WriteString(noResults + "\n")
		writeSummaryMarkdown(b, d.Bench)
		writeFlaggedMarkdown(b, d)
		return b.String()
	}

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Tool | Domain | Status | composite_v2 | bench_score | final_score |\n")
	b.WriteString("|---:|---|---|---|---:|---:|---:|\n")

	notBenched := 0
	for _, r := range d.Table.Rows {
		bench := "n/a*"
		if r.Record.Bench != nil {
			bench = fmt.Sprintf("%.4f", *r.Record.Bench)
		} else {
			notBenched++
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %.4f | %s | %.4f |\n",
			r.Rank, cell(r.Record.Tool.Identifier), r.Record.Tool.Domain,
			r.Record.Tool.Resolution.Status(), r.Record.Composite, bench, r.Final)
	}

	if notBenched > 0 {
		fmt.Fprintf(b, "\n\\* %d tool(s) not benchmarked; bench_score counted as 0 in final_score.\n", notBenched)
	}

	b.WriteString("\n## Resolution mapping\n\n")
	b.WriteString("| Tool | Status | Package | Reason |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, t := range d.Mapping() {
		pkg, _ := t.Resolution.Package()
		reason, _ := t.Resolution.Reason()
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", cell(t.Identifier), t.Resolution.Status(), orDash(cell(pkg)), orDash(cell(reason)))
	}

	if skipped := d.Skipped(); len(skipped) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, t := range skipped {
			reason, _ := t.Resolution.Reason()
			fmt.Fprintf(b, "- `%s`: %s\n", t.Identifier, reason)
		}
	}

	writeSummaryMarkdown(b, d.Bench)
	writeFlaggedMarkdown(b, d)
	return b.String()
}

func writeFlaggedMarkdown(b *strings.Builder, d *Document) {
	if len(d.Flagged) == 0 {
		return
	}
	b.WriteString("\n## Flagged input rows\n\n")
	for _, f := range d.Flagged {
		fmt.Fprintf(b, "- %s\n", f)
	}
}

func cell(v string) string {
	return cellEscaper.Replace(v)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
