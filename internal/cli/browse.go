package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/leakpath/pkg/analysis"
	"github.com/matzehuels/leakpath/pkg/chain"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listExcludedStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "browse [snapshot.json]",
		Short: "Explore reference chains interactively",
		Long: `Run an analysis and browse the results.

The list shows one row per target. Press enter to open the reference chain
of a target, f to toggle field values, and esc to go back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(c.Config, args[0])
			if err != nil {
				return err
			}
			// Field values are toggled in the viewer, so always keep them.
			opts.FieldDumps = true

			report, err := c.runAnalysis(cmd.Context(), opts, flags)
			if err != nil {
				return err
			}
			if len(report.Leaks) == 0 {
				return nil
			}
			_, err = tea.NewProgram(NewLeakListModel(report), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

// =============================================================================
// LeakListModel - Interactive leak browser
// =============================================================================

// LeakListModel is the bubbletea model of the browse command. It shows the
// targets of a report and, once one is opened, its reference chain.
type LeakListModel struct {
	Report *analysis.Report
	Cursor int
	Offset int
	Height int

	// Open is the index of the displayed chain, or -1 in the list view.
	Open       int
	ShowFields bool
}

// NewLeakListModel creates a browser over r.
func NewLeakListModel(r *analysis.Report) LeakListModel {
	return LeakListModel{Report: r, Height: 15, Open: -1}
}

func (m LeakListModel) Init() tea.Cmd {
	return nil
}

func (m LeakListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			if m.Open < 0 {
				return m, tea.Quit
			}
			m.Open = -1
		case "up", "k":
			if m.Open < 0 && m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Open < 0 && m.Cursor < len(m.Report.Leaks)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if m.Open < 0 && m.Report.Leaks[m.Cursor].Found() {
				m.Open = m.Cursor
			}
		case "f":
			m.ShowFields = !m.ShowFields
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m LeakListModel) View() string {
	if m.Open >= 0 {
		return m.chainView(m.Report.Leaks[m.Open])
	}
	return m.listView()
}

func (m LeakListModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Leaking instances"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	leaks := m.Report.Leaks
	end := min(m.Offset+m.Height, len(leaks))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		l := leaks[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		root, length, status := "-", "-", "unreachable"
		if l.Found() {
			root = l.Chain.RootKind.String()
			length = fmt.Sprint(l.Chain.Len())
			status = "leak"
			if l.Chain.UsedExclusion {
				status = "excluded"
			}
		}
		rows = append(rows, []string{cursor, fmt.Sprintf("%s@%d", l.ClassName, l.Target), root, length, status})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Instance", "Root", "Refs", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(leaks) {
				return lipgloss.NewStyle()
			}
			l := leaks[idx]
			style := listNormalStyle
			switch {
			case !l.Found():
				style = listDimStyle
			case l.Chain.UsedExclusion:
				style = listExcludedStyle
			case col == 4:
				style = StyleLeak
			}
			if idx == m.Cursor {
				style = style.Bold(true)
			}
			return style
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d retained · %d excluded · %s",
		m.Cursor+1, len(leaks), m.Report.Stats.Found, m.Report.Stats.Excluded, m.Report.Snapshot)))
	return b.String()
}

func (m LeakListModel) chainView(l analysis.Leak) string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s@%d", l.ClassName, l.Target)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("f fields  esc back  q quit"))
	b.WriteString("\n\n")

	last := len(l.Chain.Elements) - 1
	for i, el := range l.Chain.Elements {
		b.WriteString(elementLine(el, i, last))
		b.WriteString("\n")
		if m.ShowFields {
			for _, f := range el.Fields {
				b.WriteString("      " + listDimStyle.Render(f) + "\n")
			}
		}
		if i < last {
			b.WriteString(listDimStyle.Render("  │") + "\n")
		}
	}
	return b.String()
}

// elementLine styles one chain element: roots in the title style, the
// leaking instance in red and excluded references in yellow.
func elementLine(el chain.Element, i, last int) string {
	text := el.String()
	switch {
	case i == last:
		return "  " + StyleLeak.Render("leaks ") + listNormalStyle.Render(text)
	case el.Exclusion != nil:
		return "  " + listExcludedStyle.Render(text)
	case i == 0:
		return "  " + listSelectedStyle.Render("GC ROOT ") + listNormalStyle.Render(text)
	}
	return "  " + listNormalStyle.Render(text)
}
