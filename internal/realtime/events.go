// Package realtime is the realtime message bus: a registry of identified
// WebSocket sessions, their read and write pumps, Redis-backed presence and
// an optional Redis fan-out between server processes.
package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"ember/internal/models"
)

// Event types exchanged over the socket.
const (
	EventConnected  = "connected"
	EventIdentify   = "identify"
	EventIdentified = "identified"
	EventMessage    = "message"
	EventError      = "error"
)

// Inbound is any client to server frame. Only the fields relevant to Type
// are read.
type Inbound struct {
	Type       string `json:"type"`
	UserID     uint   `json:"userId,omitempty"`
	ID         uint   `json:"id,omitempty"`
	SenderID   uint   `json:"senderId,omitempty"`
	ReceiverID uint   `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
}

// StatusEvent answers a connect or an identify.
type StatusEvent struct {
	Type      string `json:"type"`
	UserID    uint   `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// MessageEvent is a stored message as delivered to a session.
type MessageEvent struct {
	Type string `json:"type"`
	models.Message
	DeliveredAt time.Time `json:"deliveredAt"`
}

// ErrorEvent reports a rejected client frame on the offending connection.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newStatus(eventType string, userID uint) StatusEvent {
	return StatusEvent{Type: eventType, UserID: userID, Timestamp: time.Now().UnixMilli()}
}

func newErrorEvent(err error) ErrorEvent {
	code := models.ErrorCode(err)
	if code == "" {
		code = models.CodeInternal
	}
	msg := "Internal server error"
	var appErr *models.AppError
	if code != models.CodeInternal && errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return ErrorEvent{Type: EventError, Code: code, Message: msg}
}

func encodeMessage(msg *models.Message) ([]byte, error) {
	return json.Marshal(MessageEvent{
		Type:        EventMessage,
		Message:     *msg,
		DeliveredAt: time.Now().UTC(),
	})
}
