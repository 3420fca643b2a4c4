package dashboard

import (
	"fmt"

	"ipdash/internal/api"
)

// Placeholder texts.
const (
	BestIPPlaceholder  = "Not yet determined"
	ResultsPlaceholder = "No results yet"
)

// RenderBestIP shows the IP, or the placeholder when none is reported.
func RenderBestIP(resp *api.BestIPResponse) Update {
	if resp == nil || resp.BestIP == "" {
		return Update{Panel: PanelBestIP, Text: BestIPPlaceholder, Placeholder: true}
	}
	return Update{Panel: PanelBestIP, Text: resp.BestIP}
}

// RenderResults builds a table whose columns are row 0's keys in order.
// Later rows are aligned to those columns; keys row 0 lacks are not shown.
func RenderResults(rows api.ResultsResponse) Update {
	if len(rows) == 0 {
		return Update{Panel: PanelResults, Text: ResultsPlaceholder, Placeholder: true}
	}

	columns := append([]string(nil), rows[0].Keys...)
	table := &Table{
		Columns: columns,
		Rows:    make([][]string, len(rows)),
	}
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = row.Cell(col)
		}
		table.Rows[i] = cells
	}
	return Update{Panel: PanelResults, Table: table}
}

// RenderLogs joins the lines as-is; a server log error shows its message.
func RenderLogs(resp *api.LogsResponse) Update {
	u := Update{Panel: PanelLogs, ScrollToBottom: true}
	if resp != nil {
		u.Text = resp.Text()
	}
	return u
}

// RenderConfig shows config text untouched. Only raw text is editable.
func RenderConfig(text string, editable bool) Update {
	return Update{Panel: PanelConfig, Text: text, Editable: editable}
}

// RenderError marks panel p as failed with err's message.
func RenderError(p Panel, err error) Update {
	return Update{
		Panel: p,
		Text:  fmt.Sprintf("Error loading %s: %v", p, err),
		Err:   err,
	}
}
