package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/tui/styles"
)

// TableColumn defines a column in the table.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row in the table.
type TableRow struct {
	Icon      string
	IconStyle lipgloss.Style
	Cells     []string
	Selected  bool
}

// Table renders a styled table with selection support.
type Table struct {
	Columns []TableColumn
	Rows    []TableRow
	Cursor  int
	Width   int
	Height  int
	theme   styles.Theme
}

// NewTable creates a new table.
func NewTable(cols []TableColumn) Table {
	return Table{
		Columns: cols,
		theme:   styles.DefaultTheme(),
	}
}

// WithRows sets the table rows.
func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

// WithCursor sets the selected row index.
func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

// WithSize sets the table dimensions.
func (t Table) WithSize(width, height int) Table {
	t.Width = width
	t.Height = height
	return t
}

// Render returns the styled table as a string.
func (t Table) Render() string {
	if len(t.Rows) == 0 {
		return t.theme.TitleMuted.Render("(no data)")
	}

	theme := t.theme
	var lines []string

	// Calculate column widths if not specified
	cols := t.Columns
	if len(cols) == 0 && len(t.Rows) > 0 {
		// Auto-generate columns from first row
		cols = make([]TableColumn, len(t.Rows[0].Cells))
		for i := range cols {
			cols[i] = TableColumn{Width: 20}
		}
	}

	// Render rows
	for i, row := range t.Rows {
		isSelected := i == t.Cursor

		// Icon + cells
		var parts []string

		// Cursor indicator
		cursor := "  "
		if isSelected {
			cursor = theme.KeybindKey.Render("> ")
		}
		parts = append(parts, cursor)

		if row.Icon != "" {
			parts = append(parts, row.IconStyle.Render(row.Icon)+" ")
		}

		// Cells
		for j, cell := range row.Cells {
			width := 20 // default
			if j < len(cols) && cols[j].Width > 0 {
				width = cols[j].Width
			}

			cellStr := Truncate(cell, width)

			cellStyle := lipgloss.NewStyle().Width(width)
			if j < len(cols) {
				cellStyle = cellStyle.Align(cols[j].Align)
			}

			if isSelected {
				cellStyle = cellStyle.Bold(true).Foreground(theme.Text)
			} else {
				cellStyle = cellStyle.Foreground(theme.TextDim)
			}

			parts = append(parts, cellStyle.Render(cellStr))
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

		// Apply selection background
		if isSelected {
			line = theme.Selected.Width(t.Width).Render(line)
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// StepRow builds the dashboard row for one pipeline step: title, status,
// progress bar, timing and the latest message or error.
func StepRow(step protocol.Step, st pipeline.StepState, selected bool) TableRow {
	theme := styles.DefaultTheme()

	timing := ""
	switch {
	case st.DurationMs != nil && st.ItemsProcessed != nil:
		timing = fmt.Sprintf("%s · %d items", formatMillis(*st.DurationMs), *st.ItemsProcessed)
	case st.DurationMs != nil:
		timing = formatMillis(*st.DurationMs)
	case st.Status == pipeline.StepRunning && st.StartedAt != nil:
		timing = formatDuration(time.Since(*st.StartedAt))
	}

	detail := st.Message
	if st.Error != "" {
		detail = st.Error
	}

	return TableRow{
		Icon:      styles.StepIcon(st.Status),
		IconStyle: theme.StepStyle(st.Status),
		Cells: []string{
			step.Title(),
			string(st.Status),
			NewStepBar(st).Render(),
			timing,
			detail,
		},
		Selected: selected,
	}
}

// Truncate shortens s to width cells, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
