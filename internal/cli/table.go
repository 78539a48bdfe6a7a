package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Table is a titled grid of pre-formatted cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable lays out headers and rows in aligned columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	cell := func(i int, s string) string {
		return TableCellStyle.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(s)
	}

	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = cell(i, h)
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, headerCells...)))
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			var v string
			if i < len(row) {
				v = row[i]
			}
			cells[i] = cell(i, v)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Printer writes analysis results in the configured format.
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter returns a printer for format, which must be table or json.
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case FormatTable, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatTable, FormatJSON)
	}
	return &Printer{w: w, format: format}, nil
}

// Print writes t as a styled table, or v as indented JSON.
func (p *Printer) Print(t Table, v any) error {
	if p.format == FormatJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var b strings.Builder
	b.WriteString(FormatTitle(t.Title))
	b.WriteString("\n")
	if len(t.Rows) == 0 {
		b.WriteString(SubtleStyle.Render("no rows"))
	} else {
		b.WriteString(RenderTable(t.Headers, t.Rows))
	}
	b.WriteString("\n")
	_, err := io.WriteString(p.w, b.String())
	return err
}

// Message writes a line of already styled text. JSON output stays clean,
// so messages are dropped in that mode.
func (p *Printer) Message(s string) {
	if p.format == FormatJSON {
		return
	}
	_, _ = fmt.Fprintln(p.w, s)
}
