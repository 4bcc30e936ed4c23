package tui

import (
	"ember/internal/client"
	"ember/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

type authMsg struct {
	res      *client.AuthResult
	complete bool
	err      error
}

type profileSavedMsg struct {
	user     *models.User
	complete bool
	err      error
}

type candidatesMsg struct {
	candidates []models.CandidateProfile
	err        error
}

type swipedMsg struct {
	target  models.CandidateProfile
	liked   bool
	isMatch bool
	err     error
}

type matchesMsg struct {
	matches []models.MatchSummary
	err     error
}

type historyMsg struct {
	other    uint
	messages []models.Message
	err      error
}

type sentMsg struct {
	msg *models.Message
	err error
}

type streamMsg struct {
	stream Stream
	err    error
}

type eventMsg struct {
	event client.Event
}

type streamClosedMsg struct {
	err error
}

func (m Model) authenticate(email, name string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.Authenticate(m.ctx, email, name, "")
		if err != nil {
			return authMsg{err: err}
		}
		complete, err := m.api.ProfileComplete(m.ctx)
		return authMsg{res: res, complete: complete, err: err}
	}
}

func (m Model) saveProfile(p client.Profile) tea.Cmd {
	return func() tea.Msg {
		user, err := m.api.UpdateProfile(m.ctx, p)
		if err != nil {
			return profileSavedMsg{err: err}
		}
		complete, err := m.api.ProfileComplete(m.ctx)
		return profileSavedMsg{user: user, complete: complete, err: err}
	}
}

func (m Model) loadCandidates() tea.Cmd {
	return func() tea.Msg {
		cs, err := m.api.Candidates(m.ctx)
		return candidatesMsg{candidates: cs, err: err}
	}
}

func (m Model) swipe(target models.CandidateProfile, liked bool) tea.Cmd {
	return func() tea.Msg {
		isMatch, err := m.api.Swipe(m.ctx, target.ID, liked)
		return swipedMsg{target: target, liked: liked, isMatch: isMatch, err: err}
	}
}

func (m Model) loadMatches() tea.Cmd {
	return func() tea.Msg {
		ms, err := m.api.Matches(m.ctx)
		return matchesMsg{matches: ms, err: err}
	}
}

func (m Model) loadHistory(other uint) tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.api.Messages(m.ctx, other)
		return historyMsg{other: other, messages: msgs, err: err}
	}
}

func (m Model) send(other uint, content string) tea.Cmd {
	return func() tea.Msg {
		msg, err := m.api.Send(m.ctx, other, content)
		return sentMsg{msg: msg, err: err}
	}
}

func (m Model) connect() tea.Cmd {
	if m.dial == nil || m.me == nil {
		return nil
	}
	userID := m.me.ID
	return func() tea.Msg {
		stream, err := m.dial(m.ctx)
		if err != nil {
			return streamMsg{err: err}
		}
		if err := stream.Identify(userID); err != nil {
			_ = stream.Close()
			return streamMsg{err: err}
		}
		return streamMsg{stream: stream}
	}
}

// listen waits for the next realtime event.
func (m Model) listen() tea.Cmd {
	stream := m.stream
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		ev, err := stream.Next(m.ctx)
		if err != nil {
			return streamClosedMsg{err: err}
		}
		return eventMsg{event: ev}
	}
}
