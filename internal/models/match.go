package models

import "time"

// Match indexes a mutual like. UserAID is always the smaller id.
type Match struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserAID   uint      `gorm:"not null;uniqueIndex:idx_matches_pair,priority:1" json:"userAId"`
	UserBID   uint      `gorm:"not null;uniqueIndex:idx_matches_pair,priority:2;index:idx_matches_user_b" json:"userBId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table name for Match.
func (Match) TableName() string {
	return "matches"
}

// OrderedPair returns a and b with the smaller id first.
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other returns the participant of m that is not userID.
func (m *Match) Other(userID uint) uint {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// MatchSummary is one entry of a user's match list.
type MatchSummary struct {
	User        PublicProfile `json:"user"`
	MatchedAt   time.Time     `json:"matchedAt"`
	LastMessage *Message      `json:"lastMessage,omitempty"`
	Online      bool          `json:"online"`
}

// LastActivity is the newest message time, or the match time without messages.
func (s *MatchSummary) LastActivity() time.Time {
	if s.LastMessage != nil && s.LastMessage.CreatedAt.After(s.MatchedAt) {
		return s.LastMessage.CreatedAt
	}
	return s.MatchedAt
}
