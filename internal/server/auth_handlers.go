package server

import (
	"strconv"
	"time"

	"ember/internal/cache"
	"ember/internal/middleware"
	"ember/internal/models"
	"ember/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthRequest is the body of POST /api/auth, as produced by the external
// OAuth flow.
type AuthRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// AuthResponse carries the access token and the signed-in user.
type AuthResponse struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

// Authenticate handles POST /api/auth
// @Summary Sign in
// @Description Creates the user on first sign-in and returns an access token. Later sign-ins return the existing user unchanged.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body AuthRequest true "Identity from the OAuth provider"
// @Success 200 {object} AuthResponse
// @Success 201 {object} AuthResponse
// @Failure 400 {object} object{error=string,code=string}
// @Failure 503 {object} object{error=string,code=string}
// @Router /auth [post]
func (s *Server) Authenticate(c *fiber.Ctx) error {
	var req AuthRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, created, err := s.userService.Authenticate(c.UserContext(), service.AuthenticateInput{
		Email:   req.Email,
		Name:    req.Name,
		Picture: req.Picture,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, err := middleware.GenerateToken(s.config.JWTSecret, user.ID, user.Email, middleware.TokenTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(AuthResponse{Token: token, User: user, Created: created})
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Returns a short-lived single-use ticket for GET /api/ws?ticket=...
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expiresIn=int}
// @Failure 401 {object} object{error=string,code=string}
// @Failure 503 {object} object{error=string,code=string}
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewStoreError("issue ticket", errRedisUnavailable))
	}

	ttl := time.Duration(s.config.WSTicketTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	ticket := uuid.NewString()
	userID := currentUserID(c)

	err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), strconv.FormatUint(uint64(userID), 10), ttl).Err()
	if err != nil {
		middleware.RedisErrors.WithLabelValues("set").Inc()
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewStoreError("issue ticket", err))
	}

	return c.JSON(fiber.Map{
		"ticket":    ticket,
		"expiresIn": int(ttl.Seconds()),
	})
}
