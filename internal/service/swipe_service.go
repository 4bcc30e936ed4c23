package service

import (
	"context"
	"log/slog"

	"ember/internal/middleware"
	"ember/internal/models"
	"ember/internal/observability"
	"ember/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// SwipeInput is one swipe decision by UserID about TargetID.
type SwipeInput struct {
	UserID   uint
	TargetID uint
	Liked    bool
}

type SwipeService struct {
	swipeRepo repository.SwipeRepository
}

func NewSwipeService(swipeRepo repository.SwipeRepository) *SwipeService {
	return &SwipeService{swipeRepo: swipeRepo}
}

// RecordSwipe stores the decision and reports whether the pair now like
// each other.
func (s *SwipeService) RecordSwipe(ctx context.Context, in SwipeInput) (result *models.SwipeResult, err error) {
	ctx, span := observability.StartSpan(ctx, "swipes.record",
		attribute.Int64("user.id", int64(in.UserID)),
		attribute.Int64("swipe.target_id", int64(in.TargetID)),
		attribute.Bool("swipe.liked", in.Liked),
	)
	defer func() { span.End(err) }()

	if in.TargetID == 0 {
		return nil, models.NewValidationError("targetId is required")
	}
	if in.TargetID == in.UserID {
		return nil, models.NewValidationError("cannot swipe on yourself")
	}

	outcome, err := s.swipeRepo.Record(ctx, in.UserID, in.TargetID, in.Liked)
	if err != nil {
		return nil, err
	}

	switch {
	case !outcome.Recorded:
		observability.SwipesTotal.WithLabelValues("duplicate").Inc()
	case in.Liked:
		observability.SwipesTotal.WithLabelValues("like").Inc()
	default:
		observability.SwipesTotal.WithLabelValues("reject").Inc()
	}
	if outcome.NewMatch {
		observability.MatchesCreated.Inc()
		middleware.Logger.InfoContext(ctx, "Match created",
			slog.Uint64("user_id", uint64(in.UserID)),
			slog.Uint64("target_id", uint64(in.TargetID)),
		)
	}

	span.SetAttributes(attribute.Bool("swipe.is_match", outcome.IsMatch))
	return &models.SwipeResult{IsMatch: outcome.IsMatch}, nil
}
