package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"ember/internal/client"
	"ember/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	authenticateFn    func(email, name string) (*client.AuthResult, error)
	updateProfileFn   func(p client.Profile) (*models.User, error)
	profileCompleteFn func() (bool, error)
	candidatesFn      func() ([]models.CandidateProfile, error)
	swipeFn           func(target uint, liked bool) (bool, error)
	matchesFn         func() ([]models.MatchSummary, error)
	messagesFn        func(other uint) ([]models.Message, error)
	sendFn            func(other uint, content string) (*models.Message, error)
}

func (f *fakeAPI) Authenticate(_ context.Context, email, name, _ string) (*client.AuthResult, error) {
	return f.authenticateFn(email, name)
}

func (f *fakeAPI) UpdateProfile(_ context.Context, p client.Profile) (*models.User, error) {
	return f.updateProfileFn(p)
}

func (f *fakeAPI) ProfileComplete(context.Context) (bool, error) { return f.profileCompleteFn() }

func (f *fakeAPI) Candidates(context.Context) ([]models.CandidateProfile, error) {
	return f.candidatesFn()
}

func (f *fakeAPI) Swipe(_ context.Context, target uint, liked bool) (bool, error) {
	return f.swipeFn(target, liked)
}

func (f *fakeAPI) Matches(context.Context) ([]models.MatchSummary, error) { return f.matchesFn() }

func (f *fakeAPI) Messages(_ context.Context, other uint) ([]models.Message, error) {
	return f.messagesFn(other)
}

func (f *fakeAPI) Send(_ context.Context, other uint, content string) (*models.Message, error) {
	return f.sendFn(other, content)
}

type fakeStream struct {
	identified uint
	events     chan client.Event
	closed     bool
}

func (s *fakeStream) Identify(userID uint) error {
	s.identified = userID
	return nil
}

func (s *fakeStream) Next(ctx context.Context) (client.Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return client.Event{}, client.ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return client.Event{}, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step feeds msg to m and returns the new model and the command it issued.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// settle runs cmd and feeds every resulting message back into m, following
// up on the commands those messages issue. Commands are expected to
// complete immediately.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = settle(t, m, c)
		}
		return m
	default:
		next, follow := step(t, m, msg)
		return settle(t, next, follow)
	}
}

func completeProfileAPI() *fakeAPI {
	me := &models.User{ID: 1, Name: "Ann", Email: "ann@example.com"}
	complete := false
	return &fakeAPI{
		authenticateFn: func(email, name string) (*client.AuthResult, error) {
			me.Email = email
			return &client.AuthResult{Token: "t", User: me, Created: true}, nil
		},
		updateProfileFn: func(p client.Profile) (*models.User, error) {
			me.Bio, me.MainPicture, me.Gender, me.Interests, me.Age = p.Bio, p.MainPicture, p.Gender, p.Interests, p.Age
			complete = me.ProfileComplete()
			return me, nil
		},
		profileCompleteFn: func() (bool, error) { return complete, nil },
		candidatesFn: func() ([]models.CandidateProfile, error) {
			return []models.CandidateProfile{
				{PublicProfile: models.PublicProfile{ID: 2, Name: "Bob", Bio: "jazz"}, HasLikedMe: true},
				{PublicProfile: models.PublicProfile{ID: 3, Name: "Cal", Bio: "bikes"}},
			}, nil
		},
	}
}

func TestLoginThenProfileThenDeck(t *testing.T) {
	api := completeProfileAPI()
	m := New(context.Background(), api, nil)

	m, cmd := step(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "email is required", m.status)

	m.login.inputs[0].SetValue("ann@example.com")
	m, cmd = step(t, m, key("enter"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenProfile, m.screen)
	require.NotNil(t, m.me)
	assert.Equal(t, uint(1), m.me.ID)

	m.profile.inputs[fieldAge].SetValue("old")
	m, _ = step(t, m, key("enter"))
	assert.Equal(t, "age must be a number", m.status)

	m.profile.inputs[fieldBio].SetValue("climber")
	m.profile.inputs[fieldMainPicture].SetValue("https://img/ann.jpg")
	m.profile.inputs[fieldGender].SetValue("Female")
	m.profile.inputs[fieldInterests].SetValue("men")
	m.profile.inputs[fieldAge].SetValue("29")
	m, cmd = step(t, m, key("enter"))
	m = settle(t, m, cmd)

	assert.Equal(t, screenDeck, m.screen)
	assert.Equal(t, models.GenderFemale, m.me.Gender)
	assert.Equal(t, 29, m.me.Age)
	require.Len(t, m.deck.candidates, 2)
	assert.Contains(t, m.View(), "Bob")
	assert.Contains(t, m.View(), "likes you")
}

func TestDeckSwipes(t *testing.T) {
	api := completeProfileAPI()
	var swiped []uint
	api.swipeFn = func(target uint, liked bool) (bool, error) {
		swiped = append(swiped, target)
		return liked && target == 2, nil
	}
	m := New(context.Background(), api, nil)
	m.screen = screenDeck
	m.me = &models.User{ID: 1}
	m = settle(t, m, m.loadCandidates())

	m, cmd := step(t, m, key("right"))
	require.NotNil(t, cmd)
	// a second key before the answer arrives is ignored
	_, dup := step(t, m, key("l"))
	assert.Nil(t, dup)

	m = settle(t, m, cmd)
	assert.Equal(t, "It's a match with Bob!", m.status)
	require.Len(t, m.deck.candidates, 1)
	assert.Equal(t, uint(3), m.deck.candidates[0].ID)

	m, cmd = step(t, m, key("h"))
	api.candidatesFn = func() ([]models.CandidateProfile, error) { return nil, nil }
	m = settle(t, m, cmd)
	assert.Equal(t, "passed on Cal", m.status)
	assert.Empty(t, m.deck.candidates)
	assert.Equal(t, []uint{2, 3}, swiped)
	assert.Contains(t, m.View(), "No one new")
}

func TestDeckSwipeError(t *testing.T) {
	api := completeProfileAPI()
	api.swipeFn = func(uint, bool) (bool, error) {
		return false, &client.APIError{Status: 503, Code: models.CodeStoreFailure, Message: "record swipe failed"}
	}
	m := New(context.Background(), api, nil)
	m.screen = screenDeck
	m = settle(t, m, m.loadCandidates())

	m, cmd := step(t, m, key("l"))
	m = settle(t, m, cmd)
	assert.Equal(t, "record swipe failed", m.status)
	assert.Len(t, m.deck.candidates, 2, "a failed swipe keeps the card")
}

func chatAPI() *fakeAPI {
	api := completeProfileAPI()
	api.matchesFn = func() ([]models.MatchSummary, error) {
		return []models.MatchSummary{
			{User: models.PublicProfile{ID: 2, Name: "Bob"}, Online: true,
				LastMessage: &models.Message{ID: 11, Content: "second"}},
			{User: models.PublicProfile{ID: 3, Name: "Cal"}},
		}, nil
	}
	api.messagesFn = func(other uint) ([]models.Message, error) {
		return []models.Message{
			{ID: 11, SenderID: 2, ReceiverID: 1, Content: "second"},
			{ID: 10, SenderID: 1, ReceiverID: 2, Content: "first"},
		}, nil
	}
	api.sendFn = func(other uint, content string) (*models.Message, error) {
		return &models.Message{ID: 12, SenderID: 1, ReceiverID: other, Content: content, CreatedAt: time.Now()}, nil
	}
	return api
}

func TestMatchesAndChat(t *testing.T) {
	m := New(context.Background(), chatAPI(), nil)
	m.screen = screenDeck
	m.me = &models.User{ID: 1, Name: "Ann"}

	m, cmd := step(t, m, key("m"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenMatches, m.screen)
	require.Len(t, m.matches.items, 2)
	assert.Contains(t, m.View(), "say hi")

	m, _ = step(t, m, key("j"))
	m, _ = step(t, m, key("k"))
	m, cmd = step(t, m, key("enter"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenChat, m.screen)
	assert.Equal(t, uint(2), m.chat.other.ID)
	require.Len(t, m.chat.messages, 2)
	assert.Equal(t, "first", m.chat.messages[0].Content, "history is shown oldest first")

	m.chat.input.SetValue("  third  ")
	m, cmd = step(t, m, key("ctrl+s"))
	m = settle(t, m, cmd)
	require.Len(t, m.chat.messages, 3)
	assert.Equal(t, "third", m.chat.messages[2].Content)
	assert.Empty(t, m.chat.input.Value())

	// the realtime echo of the same message is not shown twice
	m, _ = step(t, m, eventMsg{event: client.Event{Type: "message", ID: 12, SenderID: 1, ReceiverID: 2, Content: "third"}})
	assert.Len(t, m.chat.messages, 3)

	m, _ = step(t, m, eventMsg{event: client.Event{Type: "message", ID: 13, SenderID: 2, ReceiverID: 1, Content: "fourth"}})
	assert.Len(t, m.chat.messages, 4)

	m, _ = step(t, m, eventMsg{event: client.Event{Type: "message", ID: 14, SenderID: 3, ReceiverID: 1, Content: "psst"}})
	assert.Len(t, m.chat.messages, 4)
	assert.Equal(t, "new message from user 3", m.status)

	m, cmd = step(t, m, key("esc"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenMatches, m.screen)
}

func TestRealtimeStream(t *testing.T) {
	api := completeProfileAPI()
	stream := &fakeStream{events: make(chan client.Event, 4)}
	dial := func(context.Context) (Stream, error) { return stream, nil }

	m := New(context.Background(), api, dial)
	m, cmd := step(t, m, authMsg{res: &client.AuthResult{User: &models.User{ID: 9, Name: "Ann"}}, complete: false})
	require.NotNil(t, cmd)

	m, listen := step(t, m, cmd())
	assert.Equal(t, uint(9), stream.identified)
	require.NotNil(t, m.stream)
	require.NotNil(t, listen)
	assert.Contains(t, m.View(), "●")

	stream.events <- client.Event{Type: "error", Code: models.CodeForbidden, Message: "You can only message your matches"}
	m, listen = step(t, m, listen())
	assert.Equal(t, "You can only message your matches", m.status)

	close(stream.events)
	m, _ = step(t, m, listen())
	assert.Nil(t, m.stream)
	assert.Equal(t, "You can only message your matches", m.status, "a clean close is silent")

	_, cmd = step(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
}

func TestDialFailure(t *testing.T) {
	dial := func(context.Context) (Stream, error) { return nil, errors.New("refused") }
	m := New(context.Background(), completeProfileAPI(), dial)
	m.me = &models.User{ID: 1}

	m, _ = step(t, m, m.connect()())
	assert.Nil(t, m.stream)
	assert.Equal(t, "live updates unavailable: refused", m.status)
}
