package models

import "time"

// Message is a persisted chat message between two matched users.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	SenderID   uint      `gorm:"not null;index:idx_messages_pair,priority:1" json:"senderId"`
	ReceiverID uint      `gorm:"not null;index:idx_messages_pair,priority:2" json:"receiverId"`
	CreatedAt  time.Time `gorm:"index:idx_messages_created_at" json:"createdAt"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string {
	return "messages"
}

// Involves reports whether userID sent or received m.
func (m *Message) Involves(userID uint) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterpart returns the participant of m that is not userID.
func (m *Message) Counterpart(userID uint) uint {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
