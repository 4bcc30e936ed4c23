package tui

import (
	"strconv"
	"strings"

	"ember/internal/client"
	"ember/internal/models"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldBio = iota
	fieldMainPicture
	fieldGender
	fieldInterests
	fieldAge
)

type profileForm struct {
	inputs []textinput.Model
	focus  int
}

func newProfileForm() profileForm {
	placeholders := []string{
		"Bio",
		"Main picture URL",
		"Gender (male/female)",
		"Interested in (men/women/both)",
		"Age",
	}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = p
		inputs[i].CharLimit = 500
	}
	inputs[fieldAge].CharLimit = 3
	inputs[fieldBio].Focus()
	return profileForm{inputs: inputs}
}

// fill prefills the form from u.
func (f profileForm) fill(u *models.User) profileForm {
	if u == nil {
		return f
	}
	f.inputs[fieldBio].SetValue(u.Bio)
	f.inputs[fieldMainPicture].SetValue(u.MainPicture)
	f.inputs[fieldGender].SetValue(string(u.Gender))
	f.inputs[fieldInterests].SetValue(string(u.Interests))
	if u.Age > 0 {
		f.inputs[fieldAge].SetValue(strconv.Itoa(u.Age))
	}
	return f
}

func (f profileForm) value(field int) string {
	return strings.TrimSpace(f.inputs[field].Value())
}

// request turns the form into a partial update. Age must be numeric when
// set.
func (f profileForm) request() (client.Profile, error) {
	p := client.Profile{
		Bio:         f.value(fieldBio),
		MainPicture: f.value(fieldMainPicture),
		Gender:      models.Gender(strings.ToLower(f.value(fieldGender))),
		Interests:   models.Interest(strings.ToLower(f.value(fieldInterests))),
	}
	if raw := f.value(fieldAge); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return p, models.NewValidationError("age must be a number")
		}
		p.Age = age
	}
	return p, nil
}

func (f profileForm) view() string {
	var b strings.Builder
	b.WriteString("Your profile\n\n")
	for _, in := range f.inputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("tab: next field • enter: save • esc: back to deck"))
	return b.String()
}

func (m Model) updateProfile(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down", "shift+tab", "up":
			step := 1
			if key.String() == "shift+tab" || key.String() == "up" {
				step = -1
			}
			m.profile.focus = cycleFocus(m.profile.inputs, m.profile.focus, step)
			return m, nil
		case "esc":
			if m.me != nil && m.me.ProfileComplete() {
				m.screen = screenDeck
				return m, nil
			}
		case "enter":
			req, err := m.profile.request()
			if err != nil {
				m.status = errorText(err)
				return m, nil
			}
			m.status = "saving…"
			return m, m.saveProfile(req)
		}
	}

	cmds := make([]tea.Cmd, len(m.profile.inputs))
	for i := range m.profile.inputs {
		m.profile.inputs[i], cmds[i] = m.profile.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onProfileSaved(msg profileSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = errorText(msg.err)
		return m, nil
	}
	m.me = msg.user
	if !msg.complete {
		m.status = "bio, interests and main picture are required"
		return m, nil
	}
	m.screen = screenDeck
	m.status = "profile saved"
	return m, m.loadCandidates()
}
