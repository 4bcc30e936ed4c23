package tui

import (
	"fmt"
	"strings"

	"ember/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

type deck struct {
	candidates []models.CandidateProfile
	loading    bool
	pending    bool
}

func (d deck) current() (models.CandidateProfile, bool) {
	if len(d.candidates) == 0 {
		return models.CandidateProfile{}, false
	}
	return d.candidates[0], true
}

func (d deck) view(width int) string {
	if d.loading {
		return mutedStyle.Render("looking for people nearby…")
	}
	c, ok := d.current()
	if !ok {
		return "No one new right now.\n\n" + helpStyle.Render("r: refresh • m: matches • p: profile")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s", titleStyle.Render(c.Name))
	if c.Age > 0 {
		fmt.Fprintf(&b, ", %d", c.Age)
	}
	b.WriteString("\n")
	if c.HasLikedMe {
		b.WriteString(onlineStyle.Render("♥ likes you") + "\n")
	}
	b.WriteString("\n" + c.Bio + "\n\n")
	b.WriteString(mutedStyle.Render(c.MainPicture))

	cardWidth := width - 4
	if cardWidth > 60 {
		cardWidth = 60
	}
	card := cardStyle.Width(cardWidth).Render(b.String())
	more := mutedStyle.Render(fmt.Sprintf("%d more in this batch", len(d.candidates)-1))
	return card + "\n" + more + "\n\n" +
		helpStyle.Render("→/l: like • ←/h: pass • m: matches • p: profile • r: refresh")
}

func (m Model) updateDeck(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "r":
		m.deck.loading = true
		return m, m.loadCandidates()
	case "m":
		m.screen = screenMatches
		m.matches.loading = true
		return m, m.loadMatches()
	case "p":
		m.screen = screenProfile
		m.profile = m.profile.fill(m.me)
		return m, nil
	case "right", "l", "left", "h":
		c, ok := m.deck.current()
		if !ok || m.deck.pending {
			return m, nil
		}
		m.deck.pending = true
		liked := key.String() == "right" || key.String() == "l"
		return m, m.swipe(c, liked)
	}
	return m, nil
}

func (m Model) onCandidates(msg candidatesMsg) (tea.Model, tea.Cmd) {
	m.deck.loading = false
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	m.deck.candidates = msg.candidates
	return m, nil
}

func (m Model) onSwiped(msg swipedMsg) (tea.Model, tea.Cmd) {
	m.deck.pending = false
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}

	remaining := m.deck.candidates[:0:0]
	for _, c := range m.deck.candidates {
		if c.ID != msg.target.ID {
			remaining = append(remaining, c)
		}
	}
	m.deck.candidates = remaining

	switch {
	case msg.isMatch:
		m.status = fmt.Sprintf("It's a match with %s!", msg.target.Name)
	case msg.liked:
		m.status = "liked " + msg.target.Name
	default:
		m.status = "passed on " + msg.target.Name
	}

	if len(m.deck.candidates) == 0 {
		m.deck.loading = true
		return m, m.loadCandidates()
	}
	return m, nil
}
