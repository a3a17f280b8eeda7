package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	Header string
	Right  bool
}

// renderTable draws rows under the given columns. Short rows are padded.
func renderTable(columns []column, rows [][]string, colorize bool) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleRounded
	if colorize {
		style.Color.Header = text.Colors{text.Bold}
	}
	tw.SetStyle(style)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		align := text.AlignLeft
		if col.Right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
