package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"ember/internal/models"
	"ember/internal/observability"
	"ember/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxMessageLength caps message content, in characters.
const DefaultMaxMessageLength = 2000

// Relayer pushes a persisted message to the live sessions of its sender and
// receiver. Relay is best-effort and never fails the caller.
type Relayer interface {
	Relay(ctx context.Context, msg *models.Message)
}

// ChatService persists chat messages between matched users and relays them.
type ChatService struct {
	messageRepo repository.MessageRepository
	matchRepo   repository.MatchRepository
	relayer     Relayer
	maxLength   int
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	SenderID   uint
	ReceiverID uint
	Content    string
	// Source labels the entry point for metrics ("http", "websocket").
	Source string
}

// NewChatService returns a new ChatService. relayer may be nil.
func NewChatService(messageRepo repository.MessageRepository, matchRepo repository.MatchRepository, relayer Relayer, maxLength int) *ChatService {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &ChatService{
		messageRepo: messageRepo,
		matchRepo:   matchRepo,
		relayer:     relayer,
		maxLength:   maxLength,
	}
}

// SetRelayer installs the relay used after each send.
func (s *ChatService) SetRelayer(r Relayer) {
	s.relayer = r
}

// SendMessage validates and persists a message between two matched users,
// then relays the stored record.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (msg *models.Message, err error) {
	ctx, span := observability.StartSpan(ctx, "messages.send",
		attribute.Int64("message.sender_id", int64(in.SenderID)),
		attribute.Int64("message.receiver_id", int64(in.ReceiverID)),
	)
	defer func() { span.End(err) }()

	content := strings.TrimSpace(in.Content)
	switch {
	case in.SenderID == 0 || in.ReceiverID == 0:
		return nil, models.NewValidationError("senderId and receiverId are required")
	case in.SenderID == in.ReceiverID:
		return nil, models.NewValidationError("cannot message yourself")
	case content == "":
		return nil, models.NewValidationError("Message content cannot be empty")
	case utf8.RuneCountInString(content) > s.maxLength:
		return nil, models.NewValidationError("Message content too long")
	}

	matched, err := s.matchRepo.Exists(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, models.NewForbiddenError("You can only message your matches")
	}

	msg = &models.Message{
		Content:    content,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = "http"
	}
	observability.MessagesSent.WithLabelValues(source).Inc()
	span.SetAttributes(attribute.Int64("message.id", int64(msg.ID)))

	s.relay(ctx, msg)
	return msg, nil
}

// RelayStored relays a message that senderID already persisted.
func (s *ChatService) RelayStored(ctx context.Context, senderID, messageID uint) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != senderID {
		return nil, models.NewForbiddenError("You can only relay your own messages")
	}
	s.relay(ctx, msg)
	return msg, nil
}

func (s *ChatService) relay(ctx context.Context, msg *models.Message) {
	if s.relayer != nil {
		s.relayer.Relay(ctx, msg)
	}
}
