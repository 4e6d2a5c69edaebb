package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"sigs.k8s.io/yaml"

	"github.com/sefcom/clusterutils/pkg/utilization"
)

// Headers are the table column titles.
var Headers = []string{
	"Namespace",
	"CPU Request", "%",
	"CPU Limit", "%",
	"CPU Usage", "%",
	"Mem Request", "%",
	"Mem Limit", "%",
	"Mem Usage", "%",
}

// csvHeaders name the raw CSV columns and their units.
var csvHeaders = []string{
	"namespace",
	"cpu_request_nanocores", "cpu_request_percent",
	"cpu_limit_nanocores", "cpu_limit_percent",
	"cpu_usage_nanocores", "cpu_usage_percent",
	"mem_request_bytes", "mem_request_percent",
	"mem_limit_bytes", "mem_limit_percent",
	"mem_usage_bytes", "mem_usage_percent",
}

// MetricsUnavailableNote is printed under the table when usage could not be read.
const MetricsUnavailableNote = "note: metrics.k8s.io is not available, usage columns are zero"

// Options tune rendering.
type Options struct {
	Color  ColorMode
	Header bool // CSV only
}

// Render writes report to w in format.
func Render(w io.Writer, report *utilization.Report, format Format, opts Options) error {
	switch format {
	case FormatTable, "":
		return Table(w, report, opts.Color.Enabled(w))
	case FormatCSV:
		return CSV(w, report, opts.Header)
	case FormatJSON:
		return JSON(w, report)
	case FormatYAML:
		return YAML(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// HumanRow formats one row the way the table shows it.
func HumanRow(row utilization.Row) []string {
	t, p := row.Totals, row.Percent
	return []string{
		row.Name,
		FormatCPU(t.CPURequest), FormatPercent(p.CPURequest),
		FormatCPU(t.CPULimit), FormatPercent(p.CPULimit),
		FormatCPU(t.CPUUsage), FormatPercent(p.CPUUsage),
		FormatMemory(t.MemRequest), FormatPercent(p.MemRequest),
		FormatMemory(t.MemLimit), FormatPercent(p.MemLimit),
		FormatMemory(t.MemUsage), FormatPercent(p.MemUsage),
	}
}

// RawRow formats one row with unscaled values: nanocores, bytes and percentages.
func RawRow(row utilization.Row) []string {
	t, p := row.Totals, row.Percent
	i := func(v int64) string { return strconv.FormatInt(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		row.Name,
		i(t.CPURequest), f(p.CPURequest),
		i(t.CPULimit), f(p.CPULimit),
		i(t.CPUUsage), f(p.CPUUsage),
		i(t.MemRequest), f(p.MemRequest),
		i(t.MemLimit), f(p.MemLimit),
		i(t.MemUsage), f(p.MemUsage),
	}
}

// Table writes the human-readable table. Without color it is a plain
// column-aligned listing; with color it gets borders and highlighted summary rows.
func Table(w io.Writer, report *utilization.Report, color bool) error {
	renderer := lipgloss.NewRenderer(w)
	if color {
		renderer.SetColorProfile(termenv.ANSI256)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, HumanRow(row))
	}

	base := renderer.NewStyle()
	header := base.Bold(true)
	total := base.Foreground(lipgloss.Color("214"))
	capacity := base.Foreground(lipgloss.Color("42"))

	t := table.New().
		Headers(Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := base
			switch {
			case row == table.HeaderRow:
				style = header
			case row >= 0 && row < len(report.Rows) && report.Rows[row].Kind == utilization.RowTotal:
				style = total
			case row >= 0 && row < len(report.Rows) && report.Rows[row].Kind == utilization.RowCapacity:
				style = capacity
			}
			if col%2 == 0 && col > 0 {
				style = style.Align(lipgloss.Right)
			}
			if col < len(Headers)-1 {
				style = style.PaddingRight(2)
			}
			return style
		})

	if color {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(renderer.NewStyle().Foreground(lipgloss.Color("240"))).
			BorderColumn(false)
	} else {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			BorderColumn(false)
	}

	out := t.Render()
	if !color {
		out = trimLines(out)
	}
	if _, err := fmt.Fprintln(w, out); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if !report.MetricsAvailable {
		if _, err := fmt.Fprintln(w, MetricsUnavailableNote); err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
	}
	return nil
}

// trimLines strips trailing spaces from every line.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

// CSV writes one raw row per line. The header line is optional.
func CSV(w io.Writer, report *utilization.Report, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	for _, row := range report.Rows {
		if err := cw.Write(RawRow(row)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, report *utilization.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// YAML writes the report as YAML, using the JSON field names.
func YAML(w io.Writer, report *utilization.Report) error {
	out, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
