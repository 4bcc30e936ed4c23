package server

import (
	"ember/internal/models"
	"ember/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest is the body of PUT /api/users/me. Empty fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name        string          `json:"name"`
	Picture     string          `json:"picture"`
	Bio         string          `json:"bio"`
	Interests   models.Interest `json:"interests"`
	MainPicture string          `json:"mainPicture"`
	Age         int             `json:"age"`
	Gender      models.Gender   `json:"gender"`
}

// GetMyProfile handles GET /api/users/me
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} object{error=string,code=string}
// @Failure 404 {object} object{error=string,code=string}
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} object{error=string,code=string}
// @Failure 404 {object} object{error=string,code=string}
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      currentUserID(c),
		Name:        req.Name,
		Picture:     req.Picture,
		Bio:         req.Bio,
		Interests:   req.Interests,
		MainPicture: req.MainPicture,
		Age:         req.Age,
		Gender:      req.Gender,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetProfileCompletion handles GET /api/users/me/complete
// @Summary Whether the current profile may enter discovery
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{complete=bool}
// @Router /users/me/complete [get]
func (s *Server) GetProfileCompletion(c *fiber.Ctx) error {
	complete, err := s.userService.IsProfileComplete(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"complete": complete})
}

// LookupUser handles GET /api/users/lookup?email=
// @Summary Look up a user id by email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email address"
// @Success 200 {object} object{id=int}
// @Failure 404 {object} object{error=string,code=string}
// @Router /users/lookup [get]
func (s *Server) LookupUser(c *fiber.Ctx) error {
	user, err := s.userService.LookupByEmail(c.UserContext(), c.Query("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": user.ID})
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a public profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.PublicProfile
// @Failure 400 {object} object{error=string,code=string}
// @Failure 404 {object} object{error=string,code=string}
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// GetShowcase handles GET /api/profiles/showcase
// @Summary Profiles for the signed-out landing screen
// @Tags users
// @Produce json
// @Success 200 {array} models.PublicProfile
// @Router /profiles/showcase [get]
func (s *Server) GetShowcase(c *fiber.Ctx) error {
	profiles, err := s.userService.Showcase(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profiles)
}
