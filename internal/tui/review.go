// Package tui implements the interactive review step for grouping
// suggestions: the operator accepts or rejects each proposed group before
// anything is written back to storage.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tally-money/tally/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7")).MarginBottom(1)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7"))
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Strikethrough(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).PaddingLeft(4)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1)
)

// ReviewModel is a bubbletea model over a list of grouping suggestions.
// Every suggestion starts accepted; the operator toggles individual rows
// and confirms or aborts the batch.
type ReviewModel struct {
	suggestions []model.GroupingSuggestion
	accepted    []bool
	keys        KeyMap
	cursor      int
	aborted     bool
	confirmed   bool
}

// NewReview creates a review model with all suggestions pre-accepted.
func NewReview(suggestions []model.GroupingSuggestion) ReviewModel {
	accepted := make([]bool, len(suggestions))
	for i := range accepted {
		accepted[i] = true
	}
	return ReviewModel{suggestions: suggestions, accepted: accepted, keys: DefaultKeyMap()}
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.suggestions)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Toggle):
		if len(m.accepted) > 0 {
			m.accepted[m.cursor] = !m.accepted[m.cursor]
		}
	case key.Matches(keyMsg, m.keys.AcceptAll):
		for i := range m.accepted {
			m.accepted[i] = true
		}
	case key.Matches(keyMsg, m.keys.RejectAll):
		for i := range m.accepted {
			m.accepted[i] = false
		}
	case key.Matches(keyMsg, m.keys.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Quit), key.Matches(keyMsg, m.keys.ForceQuit):
		m.aborted = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Review grouping suggestions"))
	b.WriteString("\n")

	for i, sug := range m.suggestions {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}

		check := "[x]"
		line := fmt.Sprintf("%s %s (%d entities)", check, sug.ParentName, len(sug.ChildIDs))
		if m.accepted[i] {
			line = acceptedStyle.Render(line)
		} else {
			line = rejectedStyle.Render(strings.Replace(line, "[x]", "[ ]", 1))
		}
		b.WriteString(marker + line + "\n")

		if i == m.cursor {
			target := "new parent"
			if sug.TargetsExistingParent() {
				target = fmt.Sprintf("existing parent #%d", *sug.ParentID)
			}
			b.WriteString(detailStyle.Render(target+": "+strings.Join(sug.ChildNames, ", ")) + "\n")
		}
	}

	entries := make([]string, 0, len(m.keys.ShortHelp()))
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		entries = append(entries, h.Key+" "+h.Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(entries, " · ")))
	return b.String()
}

// Accepted returns the suggestions the operator confirmed, or nil when the
// review was aborted.
func (m ReviewModel) Accepted() []model.GroupingSuggestion {
	if m.aborted || !m.confirmed {
		return nil
	}
	var out []model.GroupingSuggestion
	for i, sug := range m.suggestions {
		if m.accepted[i] {
			out = append(out, sug)
		}
	}
	return out
}

// Run launches the interactive review and returns the accepted suggestions.
// An aborted review returns nil with no error.
func Run(suggestions []model.GroupingSuggestion) ([]model.GroupingSuggestion, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}

	program := tea.NewProgram(NewReview(suggestions))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("review failed: %w", err)
	}

	reviewed, ok := final.(ReviewModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return reviewed.Accepted(), nil
}
