package service

import (
	"context"

	"ember/internal/featureflags"
	"ember/internal/models"
	"ember/internal/observability"
	"ember/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultCandidateBatch is the discovery batch size when none is configured.
const DefaultCandidateBatch = 10

// CandidateService selects discovery candidates.
type CandidateService struct {
	userRepo  repository.UserRepository
	swipeRepo repository.SwipeRepository
	flags     *featureflags.Set
	batchSize int
}

func NewCandidateService(userRepo repository.UserRepository, swipeRepo repository.SwipeRepository, flags *featureflags.Set, batchSize int) *CandidateService {
	if batchSize <= 0 {
		batchSize = DefaultCandidateBatch
	}
	return &CandidateService{
		userRepo:  userRepo,
		swipeRepo: swipeRepo,
		flags:     flags,
		batchSize: batchSize,
	}
}

// GetCandidates returns the next batch of profiles userID may swipe on. An
// empty batch means discovery is exhausted.
func (s *CandidateService) GetCandidates(ctx context.Context, userID uint) (candidates []models.CandidateProfile, err error) {
	ctx, span := observability.StartSpan(ctx, "candidates.select", attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	requester, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	genders := requester.Interests.TargetGenders()
	interests := requester.Gender.AcceptingInterests()
	if len(genders) == 0 || len(interests) == 0 {
		return []models.CandidateProfile{}, nil
	}

	users, err := s.userRepo.FindCandidates(ctx, repository.CandidateQuery{
		RequesterID: userID,
		Genders:     genders,
		Interests:   interests,
		LikersFirst: s.flags.Enabled(featureflags.LikersFirst, userID),
		Limit:       s.batchSize,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	likers, err := s.swipeRepo.LikedBy(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.swipeRepo.LikedTargets(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	candidates = make([]models.CandidateProfile, 0, len(users))
	for i := range users {
		id := users[i].ID
		candidates = append(candidates, models.CandidateProfile{
			PublicProfile: users[i].Public(),
			HasLikedMe:    likers[id],
			MutualLike:    likers[id] && liked[id],
		})
	}
	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	return candidates, nil
}
