package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/qcacontra/internal/model"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want table, json, yaml or markdown)", s)
	}
}

// FormatForPath picks a format from a file extension, falling back to def
func FormatForPath(path, def string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "md", "markdown":
		return FormatMarkdown
	case "txt":
		return FormatTable
	default:
		return def
	}
}

// Renderer writes reports in the supported formats
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes report to w in the given format
func (r *Renderer) Render(w io.Writer, report *model.Report, format string) error {
	switch format {
	case FormatJSON:
		return r.RenderJSON(w, report)
	case FormatYAML:
		return r.RenderYAML(w, report)
	case FormatMarkdown:
		return r.RenderMarkdown(w, report)
	case FormatTable, "":
		return r.RenderTable(w, report)
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}

// RenderFile writes report to path
func (r *Renderer) RenderFile(report *model.Report, path, format string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", closeErr)
		}
	}()

	return r.Render(f, report, format)
}

// RenderJSON writes indented JSON
func (r *Renderer) RenderJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderYAML writes YAML
func (r *Renderer) RenderYAML(w io.Writer, report *model.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

// RenderTable writes an aligned plain text table
func (r *Renderer) RenderTable(w io.Writer, report *model.Report) error {
	if len(report.Contradictions) == 0 {
		_, err := fmt.Fprintf(w, "No contradictions among %s rows (%d candidate cases).\n",
			report.RowClass, report.Summary.Candidates)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{"CASE", "ROW", "CLASS", report.Outcome}, report.Conditions...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, c := range report.Contradictions {
		fmt.Fprintln(tw, strings.Join(cells(report, c), "\t"))
	}
	return tw.Flush()
}

// RenderMarkdown writes a Markdown document with a summary and a table
func (r *Renderer) RenderMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	title := report.Outcome
	if report.Name != "" {
		title = report.Name
	}
	fmt.Fprintf(&b, "# Contradictions: %s\n\n", title)
	fmt.Fprintf(&b, "- Dataset: `%s`\n", report.Dataset)
	fmt.Fprintf(&b, "- Truth table: `%s`\n", report.Table)
	fmt.Fprintf(&b, "- Outcome: `%s`\n", report.Outcome)
	fmt.Fprintf(&b, "- Rows inspected: %s (%d rows, %d cases)\n",
		report.RowClass, report.Summary.SelectedRows, report.Summary.Candidates)
	fmt.Fprintf(&b, "- Unknown label policy: %s\n", report.Policy)
	if len(report.Summary.Skipped) > 0 {
		fmt.Fprintf(&b, "- Skipped labels: %s\n", strings.Join(report.Summary.Skipped, ", "))
	}
	fmt.Fprintf(&b, "- Contradictions: %d\n\n", report.Summary.Contradictions)

	if len(report.Contradictions) == 0 {
		b.WriteString("No contradictions found.\n")
	} else {
		header := append([]string{"Case", "Row", "Class", report.Outcome}, report.Conditions...)
		b.WriteString("| " + strings.Join(header, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
		for _, c := range report.Contradictions {
			b.WriteString("| " + strings.Join(cells(report, c), " | ") + " |\n")
		}
	}

	fmt.Fprintf(&b, "\n---\n_Run %s at %s_\n", report.RunID, report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a one-block overview, used for batch progress
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	name := report.Name
	if name == "" {
		name = report.Dataset
	}
	fmt.Fprintf(w, "✓ %s: %d contradictions in %d %s rows", name,
		report.Summary.Contradictions, report.Summary.SelectedRows, report.RowClass)

	if len(report.Summary.PerClass) > 0 {
		tags := make([]string, 0, len(report.Summary.PerClass))
		for tag := range report.Summary.PerClass {
			tags = append(tags, string(tag))
		}
		sort.Strings(tags)
		parts := make([]string, len(tags))
		for i, tag := range tags {
			parts[i] = fmt.Sprintf("%s: %d", tag, report.Summary.PerClass[model.RowTag(tag)])
		}
		fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
	}
	if report.CacheHit {
		fmt.Fprint(w, " [cached]")
	}
	fmt.Fprintln(w)
}

func cells(report *model.Report, c model.Contradiction) []string {
	row := []string{c.Case, c.Row, string(c.RowClass), formatScore(c.Outcome)}
	for _, cond := range report.Conditions {
		v, ok := c.Conditions[cond]
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, formatScore(v))
	}
	return row
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
