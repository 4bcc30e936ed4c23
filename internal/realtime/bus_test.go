package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"ember/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_IdentifyRejectsOtherUser(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	c := b.Attach(newFakeConn(), 1)
	assert.Equal(t, EventConnected, next(t, c)["type"])

	b.handle(c, frame(t, Inbound{Type: EventIdentify, UserID: 2}))
	ev := next(t, c)
	assert.Equal(t, EventError, ev["type"])
	assert.Equal(t, models.CodeForbidden, ev["code"])
	assert.False(t, c.Identified())
	_, ok := b.Registry().Lookup(2)
	assert.False(t, ok)
}

func TestBus_MalformedAndUnknownEvents(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	c := identified(t, b, 1)

	b.handle(c, []byte("{not json"))
	assert.Equal(t, models.CodeValidation, next(t, c)["code"])

	b.handle(c, frame(t, Inbound{Type: "typing"}))
	assert.Equal(t, models.CodeValidation, next(t, c)["code"])

	_, ok := b.Registry().Lookup(1)
	assert.True(t, ok, "errors never tear down the session")
}

func TestBus_RelayReachesBothParticipants(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	alice := identified(t, b, 1)
	bob := identified(t, b, 2)
	carol := identified(t, b, 3)

	msg := &models.Message{ID: 9, SenderID: 1, ReceiverID: 2, Content: "hello", CreatedAt: time.Now()}
	b.Relay(context.Background(), msg)

	for _, c := range []*Client{alice, bob} {
		ev := next(t, c)
		assert.Equal(t, EventMessage, ev["type"])
		assert.EqualValues(t, 9, ev["id"])
		assert.Equal(t, "hello", ev["content"])
		assert.EqualValues(t, 1, ev["senderId"])
		assert.EqualValues(t, 2, ev["receiverId"])
		assert.NotEmpty(t, ev["createdAt"])
		assert.NotEmpty(t, ev["deliveredAt"])
	}
	assert.True(t, empty(carol))
}

func TestBus_RelayToOfflineRecipientIsBestEffort(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	alice := identified(t, b, 1)

	b.Relay(context.Background(), &models.Message{ID: 1, SenderID: 1, ReceiverID: 2, Content: "anyone?"})
	assert.Equal(t, "anyone?", next(t, alice)["content"])

	// an unidentified connection of the receiver does not get messages
	pending := b.Attach(newFakeConn(), 2)
	next(t, pending)
	b.Relay(context.Background(), &models.Message{ID: 2, SenderID: 1, ReceiverID: 2, Content: "still there?"})
	assert.True(t, empty(pending))
}

func TestBus_NewerIdentifyDisplacesOlder(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	old := identified(t, b, 1)
	current := identified(t, b, 1)

	b.Relay(context.Background(), &models.Message{ID: 1, SenderID: 2, ReceiverID: 1, Content: "hi"})
	assert.Equal(t, "hi", next(t, current)["content"])
	assert.True(t, empty(old))

	// the displaced session closing must not unregister the current one
	b.detach(old)
	got, ok := b.Registry().Lookup(1)
	require.True(t, ok)
	assert.Same(t, current, got)

	b.detach(current)
	_, ok = b.Registry().Lookup(1)
	assert.False(t, ok)
}

func TestBus_MessageFramePersistsThenRelays(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	sender := newSenderStub(b)
	alice := identified(t, b, 1)
	bob := identified(t, b, 2)

	b.handle(alice, frame(t, Inbound{Type: EventMessage, SenderID: 1, ReceiverID: 2, Content: "hey"}))

	require.Len(t, sender.inputs, 1)
	assert.Equal(t, uint(1), sender.inputs[0].SenderID)
	assert.Equal(t, "websocket", sender.inputs[0].Source)
	assert.Equal(t, "hey", next(t, alice)["content"])
	assert.Equal(t, "hey", next(t, bob)["content"])
}

func TestBus_MessageFrameByID(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	sender := newSenderStub(b)
	sender.stored[5] = &models.Message{ID: 5, SenderID: 1, ReceiverID: 2, Content: "sent over http"}
	alice := identified(t, b, 1)
	bob := identified(t, b, 2)

	b.handle(alice, frame(t, Inbound{Type: EventMessage, ID: 5}))
	assert.Equal(t, "sent over http", next(t, bob)["content"])
	assert.Equal(t, "sent over http", next(t, alice)["content"])
	assert.Empty(t, sender.inputs, "a stored message is not persisted again")

	b.handle(bob, frame(t, Inbound{Type: EventMessage, ID: 5}))
	assert.Equal(t, models.CodeForbidden, next(t, bob)["code"])
}

func TestBus_MessageFrameRejections(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{
		Limiter: func(_ context.Context, userID uint) (bool, error) { return userID != 3, nil },
	})
	sender := newSenderStub(b)

	anon := b.Attach(newFakeConn(), 1)
	next(t, anon)
	b.handle(anon, frame(t, Inbound{Type: EventMessage, ReceiverID: 2, Content: "hi"}))
	assert.Equal(t, models.CodeUnauthorized, next(t, anon)["code"])

	alice := identified(t, b, 1)
	b.handle(alice, frame(t, Inbound{Type: EventMessage, SenderID: 7, ReceiverID: 2, Content: "spoof"}))
	assert.Equal(t, models.CodeForbidden, next(t, alice)["code"])

	limited := identified(t, b, 3)
	b.handle(limited, frame(t, Inbound{Type: EventMessage, ReceiverID: 2, Content: "spam"}))
	assert.Equal(t, models.CodeRateLimited, next(t, limited)["code"])

	sender.err = models.NewForbiddenError("users are not matched")
	b.handle(alice, frame(t, Inbound{Type: EventMessage, ReceiverID: 2, Content: "hi"}))
	ev := next(t, alice)
	assert.Equal(t, models.CodeForbidden, ev["code"])
	assert.Equal(t, "users are not matched", ev["message"])

	sender.err = errors.New("driver: bad connection")
	b.handle(alice, frame(t, Inbound{Type: EventMessage, ReceiverID: 2, Content: "hi"}))
	ev = next(t, alice)
	assert.Equal(t, models.CodeInternal, ev["code"])
	assert.Equal(t, "Internal server error", ev["message"])
}

func TestBus_IsOnlineWithoutPresenceUsesRegistry(t *testing.T) {
	b := NewBus(NewRegistry(), BusOptions{})
	identified(t, b, 4)
	assert.True(t, b.IsOnline(context.Background(), 4))
	assert.False(t, b.IsOnline(context.Background(), 5))
}
