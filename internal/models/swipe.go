package models

import "time"

// Swipe is one recorded decision of Actor about Target. The pair is unique:
// the first decision is final.
type Swipe struct {
	ActorID   uint      `gorm:"primaryKey;autoIncrement:false" json:"actorId"`
	TargetID  uint      `gorm:"primaryKey;autoIncrement:false;index:idx_swipes_target_liked,priority:1" json:"targetId"`
	Liked     bool      `gorm:"not null;index:idx_swipes_target_liked,priority:2" json:"liked"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table name for Swipe.
func (Swipe) TableName() string {
	return "swipes"
}

// SwipeOutcome is what the store reports after a swipe is applied.
type SwipeOutcome struct {
	// Recorded is false when the pair already had a decision.
	Recorded bool
	// IsMatch is true when both users like each other after this swipe.
	IsMatch bool
	// NewMatch is true when this swipe created the match.
	NewMatch bool
}

// SwipeResult is returned to clients from recordSwipe.
type SwipeResult struct {
	IsMatch bool `json:"isMatch"`
}

// CandidateProfile is a discovery card.
type CandidateProfile struct {
	PublicProfile
	// HasLikedMe is true when the candidate already liked the requester.
	HasLikedMe bool `json:"hasLikedMe"`
	// MutualLike is always false for a fresh candidate because the
	// requester's own likes are excluded from discovery.
	MutualLike bool `json:"mutualLike"`
}
