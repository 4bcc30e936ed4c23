package tui

import (
	"fmt"
	"strings"

	"ember/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

type matchList struct {
	items   []models.MatchSummary
	cursor  int
	loading bool
}

func (l matchList) view() string {
	if l.loading {
		return mutedStyle.Render("loading matches…")
	}
	if len(l.items) == 0 {
		return "No matches yet. Keep swiping!\n\n" + helpStyle.Render("esc: back to deck")
	}

	var b strings.Builder
	b.WriteString("Matches\n\n")
	for i, item := range l.items {
		prefix := "  "
		name := item.User.Name
		if i == l.cursor {
			prefix = cursorStyle.Render("> ")
			name = cursorStyle.Render(name)
		}
		dot := " "
		if item.Online {
			dot = onlineStyle.Render("●")
		}
		preview := mutedStyle.Render("say hi")
		if item.LastMessage != nil {
			preview = mutedStyle.Render(truncate(item.LastMessage.Content, 40))
		}
		fmt.Fprintf(&b, "%s%s %s  %s\n", prefix, dot, name, preview)
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓: move • enter: chat • r: refresh • esc: back to deck"))
	return b.String()
}

func (m Model) updateMatches(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.matches.cursor > 0 {
			m.matches.cursor--
		}
	case "down", "j":
		if m.matches.cursor < len(m.matches.items)-1 {
			m.matches.cursor++
		}
	case "r":
		m.matches.loading = true
		return m, m.loadMatches()
	case "esc":
		m.screen = screenDeck
	case "enter":
		if len(m.matches.items) == 0 {
			return m, nil
		}
		other := m.matches.items[m.matches.cursor].User
		m.chat = m.chat.open(other)
		m.screen = screenChat
		return m, m.loadHistory(other.ID)
	}
	return m, nil
}

func (m Model) onMatches(msg matchesMsg) (tea.Model, tea.Cmd) {
	m.matches.loading = false
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	m.matches.items = msg.matches
	if m.matches.cursor >= len(msg.matches) {
		m.matches.cursor = max(0, len(msg.matches)-1)
	}
	return m, nil
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
