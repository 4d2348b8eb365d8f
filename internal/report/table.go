package report

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newTable returns a table writer styled for the mode.
func newTable(m Mode, header ...any) table.Writer {
	w := table.NewWriter()
	if m == ModeText {
		w.SetStyle(table.StyleLight)
	}
	w.AppendHeader(table.Row(header))
	return w
}

// wrapColumns caps the width of the given 1-based columns.
func wrapColumns(w table.Writer, width int, numbers ...int) {
	cfgs := make([]table.ColumnConfig, 0, len(numbers))
	for _, n := range numbers {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, WidthMax: width, Align: text.AlignLeft})
	}
	w.SetColumnConfigs(cfgs)
}

func renderTable(m Mode, w table.Writer) string {
	if m == ModeMarkdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// orDash keeps empty cells visible.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
