package service

import (
	"context"
	"sort"

	"ember/internal/featureflags"
	"ember/internal/models"
	"ember/internal/observability"
	"ember/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultHistoryLimit caps a message history read when none is configured.
const DefaultHistoryLimit = 50

// PresenceChecker reports whether a user has a live realtime session.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uint) bool
}

// MatchService lists matches and their message history.
type MatchService struct {
	matchRepo    repository.MatchRepository
	userRepo     repository.UserRepository
	messageRepo  repository.MessageRepository
	presence     PresenceChecker
	flags        *featureflags.Set
	historyLimit int
}

// MatchServiceOptions holds the optional collaborators of MatchService.
type MatchServiceOptions struct {
	Presence     PresenceChecker
	Flags        *featureflags.Set
	HistoryLimit int
}

func NewMatchService(
	matchRepo repository.MatchRepository,
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	opts MatchServiceOptions,
) *MatchService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &MatchService{
		matchRepo:    matchRepo,
		userRepo:     userRepo,
		messageRepo:  messageRepo,
		presence:     opts.Presence,
		flags:        opts.Flags,
		historyLimit: opts.HistoryLimit,
	}
}

// GetMatches returns every user who shares a mutual like with userID, most
// recent activity first.
func (s *MatchService) GetMatches(ctx context.Context, userID uint) (summaries []models.MatchSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "matches.list", attribute.Int64("user.id", int64(userID)))
	defer func() { span.End(err) }()

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	matches, err := s.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	others := make([]uint, len(matches))
	for i := range matches {
		others[i] = matches[i].Other(userID)
	}
	latest, err := s.messageRepo.LatestBetween(ctx, userID, others)
	if err != nil {
		return nil, err
	}

	showPresence := s.presence != nil && s.flags.Enabled(featureflags.Presence, userID)
	summaries = make([]models.MatchSummary, 0, len(matches))
	for i := range matches {
		other, err := s.userRepo.GetByID(ctx, others[i])
		if err != nil {
			if models.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		summary := models.MatchSummary{
			User:        other.Public(),
			MatchedAt:   matches[i].CreatedAt,
			LastMessage: latest[other.ID],
		}
		if showPresence {
			summary.Online = s.presence.IsOnline(ctx, other.ID)
		}
		summaries = append(summaries, summary)
	}

	sortByActivity(summaries)
	span.SetAttributes(attribute.Int("matches.count", len(summaries)))
	return summaries, nil
}

func sortByActivity(summaries []models.MatchSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		ai, aj := summaries[i].LastActivity(), summaries[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return summaries[i].User.ID < summaries[j].User.ID
	})
}

// GetMessages returns the newest messages between userID and matchID,
// newest first.
func (s *MatchService) GetMessages(ctx context.Context, userID, matchID uint) ([]models.Message, error) {
	if matchID == 0 || matchID == userID {
		return nil, models.NewValidationError("invalid match id")
	}
	if _, err := s.userRepo.GetByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListBetween(ctx, userID, matchID, s.historyLimit)
}
