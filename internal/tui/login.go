package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginForm struct {
	inputs []textinput.Model
	focus  int
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 255
	email.Focus()

	name := textinput.New()
	name.Placeholder = "Name (first sign-in only)"
	name.CharLimit = 100

	return loginForm{inputs: []textinput.Model{email, name}}
}

func (f loginForm) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (f loginForm) email() string { return strings.TrimSpace(f.inputs[0].Value()) }
func (f loginForm) name() string  { return strings.TrimSpace(f.inputs[1].Value()) }

func (f loginForm) view() string {
	var b strings.Builder
	b.WriteString("Sign in\n\n")
	for _, in := range f.inputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("tab: next field • enter: sign in • ctrl+c: quit"))
	return b.String()
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down", "shift+tab", "up":
			step := 1
			if key.String() == "shift+tab" || key.String() == "up" {
				step = -1
			}
			m.login.focus = cycleFocus(m.login.inputs, m.login.focus, step)
			return m, nil
		case "enter":
			if m.login.email() == "" {
				m.status = "email is required"
				return m, nil
			}
			m.status = "signing in…"
			return m, m.authenticate(m.login.email(), m.login.name())
		}
	}

	cmds := make([]tea.Cmd, len(m.login.inputs))
	for i := range m.login.inputs {
		m.login.inputs[i], cmds[i] = m.login.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onAuthenticated(msg authMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	m.me = msg.res.User
	m.profile = m.profile.fill(m.me)

	if !msg.complete {
		m.screen = screenProfile
		m.status = "complete your profile to start swiping"
		return m, m.connect()
	}
	m.screen = screenDeck
	m.status = ""
	return m, tea.Batch(m.connect(), m.loadCandidates())
}

// cycleFocus moves focus by step and returns the new index.
func cycleFocus(inputs []textinput.Model, focus, step int) int {
	inputs[focus].Blur()
	focus = (focus + step + len(inputs)) % len(inputs)
	inputs[focus].Focus()
	return focus
}
