package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ipdash/internal/dashboard"
)

// printUpdate writes one panel as plain text. tail limits log output to the
// last n lines when n > 0.
func printUpdate(w io.Writer, u dashboard.Update, tail int) {
	switch {
	case u.Err != nil:
		fmt.Fprintf(w, "ERROR  %s\n", u.Text)
	case u.Table != nil:
		writeTable(w, u.Table)
	case u.Panel == dashboard.PanelLogs:
		text := tailLines(u.Text, tail)
		fmt.Fprint(w, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
	default:
		fmt.Fprintln(w, u.Text)
	}
}

func writeTable(out io.Writer, t *dashboard.Table) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	rule := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(w, strings.Join(rule, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// tailLines returns the last n lines of text, keeping line endings.
func tailLines(text string, n int) string {
	if n <= 0 || text == "" {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "")
}

func panelTitle(p dashboard.Panel) string {
	switch p {
	case dashboard.PanelBestIP:
		return "Best IP"
	case dashboard.PanelResults:
		return "Results"
	case dashboard.PanelLogs:
		return "Logs"
	case dashboard.PanelConfig:
		return "Config"
	}
	return p.String()
}
