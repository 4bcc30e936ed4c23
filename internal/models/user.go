package models

import (
	"strings"
	"time"
)

// Gender is the self-declared gender of a user.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Interest is the gender a user wants to be shown.
type Interest string

const (
	InterestMen   Interest = "men"
	InterestWomen Interest = "women"
	InterestBoth  Interest = "both"
)

// Valid reports whether i is one of the known interests.
func (i Interest) Valid() bool {
	return i == InterestMen || i == InterestWomen || i == InterestBoth
}

// TargetGenders returns the genders a user with this interest wants to see.
// Unknown interests target nobody.
func (i Interest) TargetGenders() []Gender {
	switch i {
	case InterestMen:
		return []Gender{GenderMale}
	case InterestWomen:
		return []Gender{GenderFemale}
	case InterestBoth:
		return []Gender{GenderMale, GenderFemale}
	}
	return nil
}

// AcceptingInterests returns the interests a candidate must hold to accept
// a requester of gender g. Unknown genders are accepted by nobody.
func (g Gender) AcceptingInterests() []Interest {
	switch g {
	case GenderMale:
		return []Interest{InterestMen, InterestBoth}
	case GenderFemale:
		return []Interest{InterestWomen, InterestBoth}
	}
	return nil
}

// User is a profile record. Email is the stable external identity.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;default:''" json:"name"`
	Email       string    `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Picture     string    `gorm:"type:text;not null;default:''" json:"picture"`
	Gender      Gender    `gorm:"size:16;not null;default:'';index:idx_users_gender_interests,priority:1" json:"gender"`
	Interests   Interest  `gorm:"size:16;not null;default:'';index:idx_users_gender_interests,priority:2" json:"interests"`
	Age         int       `gorm:"not null;default:0" json:"age"`
	Bio         string    `gorm:"type:text;not null;default:''" json:"bio"`
	MainPicture string    `gorm:"type:text;not null;default:''" json:"mainPicture"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// ProfileComplete reports whether the user may enter discovery:
// bio, interests and main picture are all set.
func (u *User) ProfileComplete() bool {
	return strings.TrimSpace(u.Bio) != "" &&
		u.Interests != "" &&
		strings.TrimSpace(u.MainPicture) != ""
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicProfile is the subset of a user shown to other users.
type PublicProfile struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Gender      Gender   `json:"gender,omitempty"`
	Interests   Interest `json:"interests,omitempty"`
	Age         int      `json:"age,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	MainPicture string   `json:"mainPicture,omitempty"`
}

// Public strips the private fields of u.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		Gender:      u.Gender,
		Interests:   u.Interests,
		Age:         u.Age,
		Bio:         u.Bio,
		MainPicture: u.MainPicture,
	}
}
