package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ember/internal/models"
	"ember/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedRepo(matched bool) *matchRepoStub {
	return &matchRepoStub{
		existsFn: func(context.Context, uint, uint) (bool, error) { return matched, nil },
	}
}

func TestChatService_SendMessage_Validation(t *testing.T) {
	relay := &relayRecorder{}
	svc := NewChatService(noopMessageRepo(), matchedRepo(true), relay, 10)
	ctx := context.Background()

	cases := map[string]SendMessageInput{
		"missing receiver": {SenderID: 1, Content: "hi"},
		"self":             {SenderID: 1, ReceiverID: 1, Content: "hi"},
		"blank":            {SenderID: 1, ReceiverID: 2, Content: "  \n "},
		"too long":         {SenderID: 1, ReceiverID: 2, Content: strings.Repeat("ü", 11)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}
	assert.Empty(t, relay.relayed())
}

func TestChatService_SendMessage_RequiresMatch(t *testing.T) {
	relay := &relayRecorder{}
	created := false
	messages := noopMessageRepo()
	messages.createFn = func(context.Context, *models.Message) error {
		created = true
		return nil
	}
	svc := NewChatService(messages, matchedRepo(false), relay, 0)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "hey"})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	assert.False(t, created)
	assert.Empty(t, relay.relayed())
}

func TestChatService_SendMessage_PersistsThenRelays(t *testing.T) {
	relay := &relayRecorder{}
	messages := noopMessageRepo()
	messages.createFn = func(_ context.Context, msg *models.Message) error {
		assert.Empty(t, relay.relayed(), "relay happens after persistence")
		msg.ID = 77
		return nil
	}
	svc := NewChatService(messages, matchedRepo(true), relay, 0)

	msg, err := svc.SendMessage(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "  hi there  ", Source: "websocket"})
	require.NoError(t, err)
	assert.Equal(t, uint(77), msg.ID)
	assert.Equal(t, "hi there", msg.Content)

	relayed := relay.relayed()
	require.Len(t, relayed, 1)
	assert.Same(t, msg, relayed[0])
}

func TestChatService_SendMessage_StoreFailureIsNotRelayed(t *testing.T) {
	relay := &relayRecorder{}
	messages := noopMessageRepo()
	messages.createFn = func(context.Context, *models.Message) error {
		return models.NewStoreError("save message", errors.New("disk full"))
	}
	svc := NewChatService(messages, matchedRepo(true), relay, 0)

	_, err := svc.SendMessage(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "hi"})
	assert.Equal(t, models.CodeStoreFailure, models.ErrorCode(err))
	assert.Empty(t, relay.relayed())
}

func TestChatService_RelayStored(t *testing.T) {
	relay := &relayRecorder{}
	messages := noopMessageRepo()
	messages.getByIDFn = func(_ context.Context, id uint) (*models.Message, error) {
		if id != 5 {
			return nil, models.NewNotFoundError("Message", id)
		}
		return &models.Message{ID: 5, SenderID: 1, ReceiverID: 2, Content: "stored"}, nil
	}
	svc := NewChatService(messages, matchedRepo(true), nil, 0)
	svc.SetRelayer(relay)
	ctx := context.Background()

	_, err := svc.RelayStored(ctx, 2, 5)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	_, err = svc.RelayStored(ctx, 1, 6)
	assert.True(t, models.IsNotFound(err))

	msg, err := svc.RelayStored(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "stored", msg.Content)
	assert.Len(t, relay.relayed(), 1)
}

func TestChatService_WithStore(t *testing.T) {
	db := newTestDB(t)
	swipes := NewSwipeService(repository.NewSwipeRepository(db))
	msgRepo := repository.NewMessageRepository(db)
	chat := NewChatService(msgRepo, repository.NewMatchRepository(db), nil, 0)
	matches := NewMatchService(repository.NewMatchRepository(db), repository.NewUserRepository(db), msgRepo, MatchServiceOptions{})
	ctx := context.Background()

	a := onboard(t, db, "a", models.GenderMale, models.InterestWomen)
	b := onboard(t, db, "b", models.GenderFemale, models.InterestMen)

	_, err := chat.SendMessage(ctx, SendMessageInput{SenderID: a.ID, ReceiverID: b.ID, Content: "too soon"})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	_, err = swipes.RecordSwipe(ctx, SwipeInput{UserID: a.ID, TargetID: b.ID, Liked: true})
	require.NoError(t, err)
	_, err = swipes.RecordSwipe(ctx, SwipeInput{UserID: b.ID, TargetID: a.ID, Liked: true})
	require.NoError(t, err)

	sent, err := chat.SendMessage(ctx, SendMessageInput{SenderID: a.ID, ReceiverID: b.ID, Content: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, sent.ID)
	assert.False(t, sent.CreatedAt.IsZero())

	history, err := matches.GetMessages(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Content)

	list, err := matches.GetMatches(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, sent.ID, list[0].LastMessage.ID)
}
