package server

import (
	"ember/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendMessageRequest is the body of POST /api/matches/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// GetMatches handles GET /api/matches
// @Summary List matches
// @Description Mutual likes of the caller, most recent activity first.
// @Tags matches
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.MatchSummary
// @Failure 404 {object} object{error=string,code=string}
// @Router /matches [get]
func (s *Server) GetMatches(c *fiber.Ctx) error {
	matches, err := s.matchService.GetMatches(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(matches)
}

// GetMessages handles GET /api/matches/:id/messages
// @Summary Conversation history with a match
// @Description Newest first. The id is the other user's id.
// @Tags matches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Matched user ID"
// @Success 200 {array} models.Message
// @Failure 400 {object} object{error=string,code=string}
// @Failure 404 {object} object{error=string,code=string}
// @Router /matches/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	messages, err := s.matchService.GetMessages(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/matches/:id/messages
// @Summary Send a message to a match
// @Description Persists the message and relays it to both participants' live sessions.
// @Tags matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Matched user ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} object{error=string,code=string}
// @Failure 403 {object} object{error=string,code=string}
// @Failure 503 {object} object{error=string,code=string}
// @Router /matches/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		SenderID:   currentUserID(c),
		ReceiverID: receiverID,
		Content:    req.Content,
		Source:     "http",
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
