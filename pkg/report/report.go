// Package report renders the end-of-run summary printed on stderr.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

var columns = []struct {
	title string
	width int
}{
	{"kind", 13},
	{"inserted", 9},
	{"updated", 8},
	{"unchanged", 10},
	{"undesired", 10},
	{"purged", 7},
	{"dups", 5},
	{"ids", 5},
}

// Summary is everything the report shows about one run.
type Summary struct {
	RunID        string
	Input        string
	Output       string
	InputDigest  string
	OutputDigest string
	Unchanged    bool
	Duration     time.Duration
	Results      []*reconcile.Result
	Placed       int
	Skipped      []string
	PanelAdded   int
	PanelRemoved int
	Notable      bool
}

func cell(s string, width int, style lipgloss.Style) string {
	return style.Width(width).Render(s)
}

func row(values []string, style lipgloss.Style) string {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = cell(v, columns[i].width, style)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func itoa(n int) string { return strconv.Itoa(n) }

// Table renders one line per merged kind.
func Table(results []*reconcile.Result) string {
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	lines := []string{row(titles, headerStyle)}
	for _, r := range results {
		if r == nil {
			continue
		}
		lines = append(lines, row([]string{
			r.Kind.String(),
			itoa(len(r.Inserted)),
			itoa(len(r.Updated)),
			itoa(len(r.Unchanged)),
			itoa(len(r.Undesired) - len(r.Purged)),
			itoa(len(r.Purged)),
			itoa(len(r.Duplicates)),
			itoa(len(r.Allocated)),
		}, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Render returns the full summary.
func (s *Summary) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("jmri-merge " + s.RunID))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s -> %s in %s", s.Input, s.Output, s.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(Table(s.Results)))
	b.WriteString("\n")

	signals := fmt.Sprintf("signals placed: %d", s.Placed)
	if s.Notable {
		signals = fmt.Sprintf("signals placed: %d   table: kept (notable)", s.Placed)
	}
	b.WriteString(fmt.Sprintf("%s   panel: +%d -%d\n", signals, s.PanelAdded, s.PanelRemoved))
	if len(s.Skipped) > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("blocks not on panel: %s", strings.Join(s.Skipped, ", "))))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("digest %s -> %s", s.InputDigest, s.OutputDigest)))
	if s.Unchanged {
		b.WriteString(" ")
		b.WriteString(headerStyle.Render("(unchanged)"))
	}
	b.WriteString("\n")
	return b.String()
}

// Write renders the summary to w.
func (s *Summary) Write(w io.Writer) error {
	_, err := io.WriteString(w, s.Render())
	return err
}
