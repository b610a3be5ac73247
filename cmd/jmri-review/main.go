package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/jmri-panelmerge/pkg/journal"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	detailBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next filter"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev filter"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}

// filters are the tabs; the zero op shows everything.
var filters = []journal.Op{
	0,
	journal.OpRun,
	journal.OpInsert,
	journal.OpUpdate,
	journal.OpPurge,
	journal.OpUndesired,
	journal.OpDuplicate,
	journal.OpAllocate,
}

func filterName(op journal.Op) string {
	if op == 0 {
		return "all"
	}
	return op.String()
}

var columns = []table.Column{
	{Title: "Seq", Width: 6},
	{Title: "Time", Width: 19},
	{Title: "Op", Width: 10},
	{Title: "Kind", Width: 12},
	{Title: "Key", Width: 32},
	{Title: "System name", Width: 22},
}

type model struct {
	path    string
	entries []*journal.Entry
	visible []*journal.Entry
	filter  int
	table   table.Model
	help    help.Model
	keys    keyMap
	width   int
}

func initialModel(path string, entries []*journal.Entry) model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		path:    path,
		entries: entries,
		table:   t,
		help:    help.New(),
		keys:    keys,
	}
	m.applyFilter()
	return m
}

// selectEntries returns the entries matching op, or all of them for the zero op.
func selectEntries(entries []*journal.Entry, op journal.Op) []*journal.Entry {
	if op == 0 {
		return entries
	}
	var out []*journal.Entry
	for _, e := range entries {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func entryRow(e *journal.Entry) table.Row {
	r := e.Record
	key := r.Key
	if e.Op == journal.OpRun {
		key = r.RunID
	}
	return table.Row{
		fmt.Sprintf("%d", e.Seq),
		e.Timestamp.Format("2006-01-02 15:04:05"),
		e.Op.String(),
		r.Kind,
		key,
		r.SystemName,
	}
}

func (m *model) applyFilter() {
	m.visible = selectEntries(m.entries, filters[m.filter])
	rows := make([]table.Row, 0, len(m.visible))
	for _, e := range m.visible {
		rows = append(rows, entryRow(e))
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if msg.Height > 14 {
			m.table.SetHeight(msg.Height - 14)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Tab):
			m.filter = (m.filter + 1) % len(filters)
			m.applyFilter()
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			if m.filter == 0 {
				m.filter = len(filters) - 1
			} else {
				m.filter--
			}
			m.applyFilter()
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("jmri-review %s", m.path)))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	body := m.table.View()
	if detail := m.renderDetail(); detail != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, detail)
	}
	s.WriteString(contentStyle.Render(body))

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(fmt.Sprintf("%d of %d records", len(m.visible), len(m.entries))))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func (m model) renderTabs() string {
	var tabs []string
	for i, op := range filters {
		label := filterName(op)
		if i == m.filter {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m model) renderDetail() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return ""
	}
	r := m.visible[i].Record
	lines := []string{"run: " + r.RunID}
	if r.Detail != "" {
		lines = append(lines, r.Detail)
	}
	return detailBoxStyle.Render(strings.Join(lines, "\n"))
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: jmri-review merge.journal")
		os.Exit(1)
	}
	path := os.Args[1]

	entries, err := journal.ReadAll(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "%s: no records\n", path)
		return
	}

	p := tea.NewProgram(initialModel(path, entries), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
