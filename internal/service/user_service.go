// Package service provides the application business logic: accounts,
// discovery, swipes, matches and chat.
package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"ember/internal/cache"
	"ember/internal/models"
	"ember/internal/repository"
)

const (
	maxNameLen    = 100
	maxBioLen     = 500
	maxURLLen     = 2048
	minAge        = 18
	maxAge        = 120
	showcaseLimit = 10
)

type UserService struct {
	userRepo repository.UserRepository
}

// AuthenticateInput carries the identity asserted by the sign-in provider.
type AuthenticateInput struct {
	Email   string
	Name    string
	Picture string
}

// UpdateProfileInput is a partial profile update. Zero fields are left unchanged.
type UpdateProfileInput struct {
	UserID      uint
	Name        string
	Picture     string
	Bio         string
	Interests   models.Interest
	MainPicture string
	Age         int
	Gender      models.Gender
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Authenticate finds the user with in.Email or creates it on first sign-in.
// The bool reports whether the user was created.
func (s *UserService) Authenticate(ctx context.Context, in AuthenticateInput) (*models.User, bool, error) {
	email := models.NormalizeEmail(in.Email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return nil, false, models.NewValidationError("A valid email is required")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = local
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, false, models.NewValidationError("Name too long (max 100 characters)")
	}
	picture := strings.TrimSpace(in.Picture)
	if len(picture) > maxURLLen {
		return nil, false, models.NewValidationError("Picture URL too long")
	}

	return s.userRepo.FindOrCreateByEmail(ctx, &models.User{
		Email:   email,
		Name:    name,
		Picture: picture,
	})
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// LookupByEmail returns the user registered with email.
func (s *UserService) LookupByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		if utf8.RuneCountInString(name) > maxNameLen {
			return nil, models.NewValidationError("Name too long (max 100 characters)")
		}
		user.Name = name
	}
	if bio := strings.TrimSpace(in.Bio); bio != "" {
		if utf8.RuneCountInString(bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = bio
	}
	if in.Picture != "" {
		if len(in.Picture) > maxURLLen {
			return nil, models.NewValidationError("Picture URL too long")
		}
		user.Picture = in.Picture
	}
	if in.MainPicture != "" {
		if len(in.MainPicture) > maxURLLen {
			return nil, models.NewValidationError("Main picture URL too long")
		}
		user.MainPicture = in.MainPicture
	}
	if in.Interests != "" {
		if !in.Interests.Valid() {
			return nil, models.NewValidationError("interests must be one of men, women, both")
		}
		user.Interests = in.Interests
	}
	if in.Gender != "" {
		if !in.Gender.Valid() {
			return nil, models.NewValidationError("gender must be male or female")
		}
		user.Gender = in.Gender
	}
	if in.Age != 0 {
		if in.Age < minAge || in.Age > maxAge {
			return nil, models.NewValidationError("age must be between 18 and 120")
		}
		user.Age = in.Age
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsProfileComplete reports whether bio, interests and main picture are set.
func (s *UserService) IsProfileComplete(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.ProfileComplete(), nil
}

// Showcase returns the first profiles with a main picture, for signed-out
// visitors.
func (s *UserService) Showcase(ctx context.Context) ([]models.PublicProfile, error) {
	profiles := []models.PublicProfile{}
	err := cache.Aside(ctx, cache.ShowcaseKey, &profiles, cache.ShowcaseTTL, func() error {
		users, err := s.userRepo.ListWithMainPicture(ctx, showcaseLimit)
		if err != nil {
			return err
		}
		for i := range users {
			profiles = append(profiles, users[i].Public())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
