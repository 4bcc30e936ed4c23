package tui

import (
	"fmt"
	"slices"
	"strings"

	"ember/internal/client"
	"ember/internal/models"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type chatView struct {
	other    models.PublicProfile
	messages []models.Message // oldest first
	viewport viewport.Model
	input    textarea.Model
	loading  bool
}

func newChatView(width int) chatView {
	input := textarea.New()
	input.Placeholder = "Send a message..."
	input.Prompt = "┃ "
	input.CharLimit = 2000
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.SetWidth(width)
	input.FocusedStyle.CursorLine = lipgloss.NewStyle()

	return chatView{viewport: viewport.New(width, 12), input: input}
}

func (c *chatView) resize(width int) {
	c.viewport.Width = width
	c.input.SetWidth(width)
}

// open resets the view for a conversation with other.
func (c chatView) open(other models.PublicProfile) chatView {
	c.other = other
	c.messages = nil
	c.loading = true
	c.input.Reset()
	c.input.Focus()
	c.viewport.SetContent("")
	return c
}

// add appends msg unless it is already shown; realtime echoes of our own
// HTTP sends arrive after the HTTP response.
func (c chatView) add(msg models.Message) chatView {
	if slices.ContainsFunc(c.messages, func(m models.Message) bool { return m.ID == msg.ID }) {
		return c
	}
	c.messages = append(c.messages, msg)
	return c
}

func (c chatView) involves(msg models.Message) bool {
	return msg.SenderID == c.other.ID || msg.ReceiverID == c.other.ID
}

func (c *chatView) render(me *models.User) {
	var b strings.Builder
	for _, msg := range c.messages {
		if me != nil && msg.SenderID == me.ID {
			b.WriteString(meStyle.Render("you") + "\n")
		} else {
			b.WriteString(otherStyle.Render(c.other.Name) + "\n")
		}
		b.WriteString(msg.Content + "\n\n")
	}
	c.viewport.SetContent(b.String())
	c.viewport.GotoBottom()
}

func (c chatView) view(me *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat with %s\n", titleStyle.Render(c.other.Name))
	b.WriteString(strings.Repeat("─", 25) + "\n")
	if c.loading {
		b.WriteString(mutedStyle.Render("loading…") + "\n")
	} else {
		b.WriteString(c.viewport.View() + "\n")
	}
	b.WriteString(strings.Repeat("─", 25) + "\n")
	b.WriteString(c.input.View() + "\n")
	b.WriteString(helpStyle.Render("ctrl+s: send • esc: back to matches"))
	return b.String()
}

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.screen = screenMatches
			m.matches.loading = true
			return m, m.loadMatches()
		case "ctrl+s":
			content := strings.TrimSpace(m.chat.input.Value())
			if content == "" {
				return m, nil
			}
			m.chat.input.Reset()
			return m, m.send(m.chat.other.ID, content)
		}
	}

	var vpCmd, inCmd tea.Cmd
	m.chat.viewport, vpCmd = m.chat.viewport.Update(msg)
	m.chat.input, inCmd = m.chat.input.Update(msg)
	return m, tea.Batch(vpCmd, inCmd)
}

func (m Model) onHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if msg.other != m.chat.other.ID {
		return m, nil
	}
	m.chat.loading = false
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	// history arrives newest first
	history := slices.Clone(msg.messages)
	slices.Reverse(history)
	for _, h := range history {
		m.chat = m.chat.add(h)
	}
	m.chat.render(m.me)
	return m, nil
}

func (m Model) onSent(msg sentMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	if m.screen == screenChat && m.chat.involves(*msg.msg) {
		m.chat = m.chat.add(*msg.msg)
		m.chat.render(m.me)
	}
	return m, nil
}

func (m Model) onStream(msg streamMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "live updates unavailable: " + errorText(msg.err)
		return m, nil
	}
	m.stream = msg.stream
	return m, m.listen()
}

func (m Model) onEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	ev := msg.event
	switch ev.Type {
	case "message":
		incoming := messageFromEvent(ev)
		if m.screen == screenChat && m.chat.involves(incoming) {
			m.chat = m.chat.add(incoming)
			m.chat.render(m.me)
		} else if m.me != nil && incoming.ReceiverID == m.me.ID {
			m.status = fmt.Sprintf("new message from user %d", incoming.SenderID)
		}
	case "error":
		m.status = ev.Message
	}
	return m, m.listen()
}

func messageFromEvent(ev client.Event) models.Message {
	return models.Message{
		ID:         ev.ID,
		Content:    ev.Content,
		SenderID:   ev.SenderID,
		ReceiverID: ev.ReceiverID,
		CreatedAt:  ev.CreatedAt,
	}
}
