// Package wizard provides the interactive advisory review step: each
// denormalization recommendation is accepted or rejected before it is merged
// into the document schema.
package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/usedamru/sql2nosql/internal/advisory"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	AcceptAll key.Binding
	RejectAll key.Binding
	Confirm   key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.AcceptAll, k.RejectAll, k.Confirm, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.AcceptAll, k.RejectAll, k.Confirm, k.Quit},
	}
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	AcceptAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "accept all")),
	RejectAll: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "reject all")),
	Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
}

// ReviewModel is the bubbletea model for the advisory review step.
type ReviewModel struct {
	recs      []advisory.Recommendation
	accepted  []bool
	cursor    int
	help      help.Model
	done      bool
	cancelled bool
	width     int
	height    int
}

// NewReviewModel creates a review model with every recommendation accepted
// by default.
func NewReviewModel(recs []advisory.Recommendation) ReviewModel {
	accepted := make([]bool, len(recs))
	for i := range accepted {
		accepted[i] = true
	}
	return ReviewModel{
		recs:     recs,
		accepted: accepted,
		help:     help.New(),
		width:    100,
		height:   24,
	}
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if len(m.recs) == 0 {
			switch {
			case key.Matches(msg, keys.Confirm):
				m.done = true
				return m, tea.Quit
			case key.Matches(msg, keys.Quit):
				m.done = true
				m.cancelled = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			m.done = true
			m.cancelled = true
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.recs)-1 {
				m.cursor++
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, keys.Toggle):
			m.accepted[m.cursor] = !m.accepted[m.cursor]

		case key.Matches(msg, keys.AcceptAll):
			for i := range m.accepted {
				m.accepted[i] = true
			}

		case key.Matches(msg, keys.RejectAll):
			for i := range m.accepted {
				m.accepted[i] = false
			}

		case key.Matches(msg, keys.Confirm):
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ReviewModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Advisory Review"))
	b.WriteString("\n\n")

	if len(m.recs) == 0 {
		b.WriteString("  No recommendations to review.\n\n")
		b.WriteString(dimStyle.Render("  Press enter to continue • q to cancel\n"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-3s %-32s %-10s %-10s %s\n", "", "Collection.Field", "Strategy", "Relation", "Confidence"))
	b.WriteString("  " + strings.Repeat("─", 72) + "\n")

	maxVisible := m.height - 12
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(m.recs) {
		end = len(m.recs)
	}

	for i := start; i < end; i++ {
		r := m.recs[i]

		cursor := "  "
		if i == m.cursor {
			cursor = highlightStyle.Render("> ")
		}

		mark := errStyle.Render("[ ]")
		if m.accepted[i] {
			mark = successStyle.Render("[x]")
		}

		b.WriteString(fmt.Sprintf("%s%s %-32s %-10s %-10s %.2f\n",
			cursor, mark, r.Collection+"."+r.Field, r.Strategy, r.Relationship, r.Confidence))
	}

	// Detail pane for the current selection
	r := m.recs[m.cursor]
	b.WriteString("\n")
	b.WriteString(highlightStyle.Render("  Reasoning: "))
	b.WriteString(r.Reasoning + "\n")
	if len(r.SuggestedFields) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Suggested fields: %s\n", strings.Join(r.SuggestedFields, ", "))))
	}

	b.WriteString("\n  ")
	b.WriteString(m.help.View(keys))
	b.WriteString("\n")

	return b.String()
}

// Done returns true when the model is finished.
func (m ReviewModel) Done() bool {
	return m.done
}

// Cancelled returns true if the user backed out of the review.
func (m ReviewModel) Cancelled() bool {
	return m.cancelled
}

// Accepted returns the recommendations the user kept, in original order.
func (m ReviewModel) Accepted() []advisory.Recommendation {
	var out []advisory.Recommendation
	for i, r := range m.recs {
		if m.accepted[i] {
			out = append(out, r)
		}
	}
	return out
}

// Run executes the review interactively and returns the accepted
// recommendations, or nil and false if the user cancelled.
func Run(recs []advisory.Recommendation) ([]advisory.Recommendation, bool, error) {
	p := tea.NewProgram(NewReviewModel(recs))
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("running review: %w", err)
	}
	m := final.(ReviewModel)
	if m.Cancelled() {
		return nil, false, nil
	}
	return m.Accepted(), true, nil
}

// styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)
