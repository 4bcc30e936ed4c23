// Package tui is the terminal client of ember: sign in, complete the
// profile, swipe through the deck and chat with matches.
package tui

import (
	"context"
	"errors"

	"ember/internal/client"
	"ember/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

// API is the part of the HTTP client the terminal UI uses.
// *client.Client satisfies it.
type API interface {
	Authenticate(ctx context.Context, email, name, picture string) (*client.AuthResult, error)
	UpdateProfile(ctx context.Context, p client.Profile) (*models.User, error)
	ProfileComplete(ctx context.Context) (bool, error)
	Candidates(ctx context.Context) ([]models.CandidateProfile, error)
	Swipe(ctx context.Context, target uint, liked bool) (bool, error)
	Matches(ctx context.Context) ([]models.MatchSummary, error)
	Messages(ctx context.Context, other uint) ([]models.Message, error)
	Send(ctx context.Context, other uint, content string) (*models.Message, error)
}

// Stream is an open realtime connection. *client.Conn satisfies it.
type Stream interface {
	Identify(userID uint) error
	Next(ctx context.Context) (client.Event, error)
	Close() error
}

// DialFunc opens the realtime connection after sign-in. It may be nil, in
// which case the UI works without live updates.
type DialFunc func(ctx context.Context) (Stream, error)

type screen int

const (
	screenLogin screen = iota
	screenProfile
	screenDeck
	screenMatches
	screenChat
)

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	api    API
	dial   DialFunc
	screen screen
	me     *models.User
	stream Stream
	status string
	width  int

	login   loginForm
	profile profileForm
	deck    deck
	matches matchList
	chat    chatView
}

// New returns the UI at the sign-in screen.
func New(ctx context.Context, api API, dial DialFunc) Model {
	return Model{
		ctx:     ctx,
		api:     api,
		dial:    dial,
		screen:  screenLogin,
		width:   80,
		login:   newLoginForm(),
		profile: newProfileForm(),
		chat:    newChatView(80),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.login.focusCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.stream != nil {
				_ = m.stream.Close()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.chat.resize(msg.Width)
		return m, nil

	case authMsg:
		return m.onAuthenticated(msg)
	case profileSavedMsg:
		return m.onProfileSaved(msg)
	case candidatesMsg:
		return m.onCandidates(msg)
	case swipedMsg:
		return m.onSwiped(msg)
	case matchesMsg:
		return m.onMatches(msg)
	case historyMsg:
		return m.onHistory(msg)
	case sentMsg:
		return m.onSent(msg)
	case streamMsg:
		return m.onStream(msg)
	case eventMsg:
		return m.onEvent(msg)
	case streamClosedMsg:
		m.stream = nil
		if msg.err != nil && !errors.Is(msg.err, client.ErrClosed) && !errors.Is(msg.err, context.Canceled) {
			m.status = "live updates stopped: " + msg.err.Error()
		}
		return m, nil
	}

	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenProfile:
		return m.updateProfile(msg)
	case screenDeck:
		return m.updateDeck(msg)
	case screenMatches:
		return m.updateMatches(msg)
	case screenChat:
		return m.updateChat(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenLogin:
		body = m.login.view()
	case screenProfile:
		body = m.profile.view()
	case screenDeck:
		body = m.deck.view(m.width)
	case screenMatches:
		body = m.matches.view()
	case screenChat:
		body = m.chat.view(m.me)
	}
	return m.header() + "\n\n" + body + "\n" + m.footer()
}

func (m Model) header() string {
	title := titleStyle.Render("ember")
	if m.me != nil {
		title += "  " + mutedStyle.Render(m.me.Name)
		if m.stream != nil {
			title += " " + onlineStyle.Render("●")
		}
	}
	return title
}

func (m Model) footer() string {
	if m.status == "" {
		return ""
	}
	return statusStyle.Render(m.status)
}

func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
