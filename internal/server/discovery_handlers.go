package server

import (
	"ember/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SwipeRequest is the body of POST /api/swipes.
type SwipeRequest struct {
	TargetID uint `json:"targetId"`
	Liked    bool `json:"liked"`
}

// GetCandidates handles GET /api/candidates
// @Summary Next batch of candidates
// @Description Complete profiles of the wanted gender that accept the caller and have not been swiped yet.
// @Tags discovery
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CandidateProfile
// @Failure 404 {object} object{error=string,code=string}
// @Failure 503 {object} object{error=string,code=string}
// @Router /candidates [get]
func (s *Server) GetCandidates(c *fiber.Ctx) error {
	candidates, err := s.candidateService.GetCandidates(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(candidates)
}

// RecordSwipe handles POST /api/swipes
// @Summary Like or reject a candidate
// @Tags discovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SwipeRequest true "Decision"
// @Success 200 {object} models.SwipeResult
// @Failure 400 {object} object{error=string,code=string}
// @Failure 404 {object} object{error=string,code=string}
// @Failure 503 {object} object{error=string,code=string}
// @Router /swipes [post]
func (s *Server) RecordSwipe(c *fiber.Ctx) error {
	var req SwipeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.swipeService.RecordSwipe(c.UserContext(), service.SwipeInput{
		UserID:   currentUserID(c),
		TargetID: req.TargetID,
		Liked:    req.Liked,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
