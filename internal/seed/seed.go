package seed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"ember/internal/database"
	"ember/internal/middleware"
	"ember/internal/models"
	"ember/internal/repository"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers int
	// SwipesPerUser caps how many compatible profiles each user decides on.
	SwipesPerUser int
	// LikeRatio is the probability that a decision is a like.
	LikeRatio        float64
	MessagesPerMatch int
	DryRun           bool
	RandSeed         int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Swipes   int
	Matches  int
	Messages int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d swipes, %d matches, %d messages", s.Users, s.Swipes, s.Matches, s.Messages)
}

// Seeder populates the database through the same repositories the API
// uses, so matches come out of real reciprocal likes.
type Seeder struct {
	db       *gorm.DB
	opts     Options
	factory  *Factory
	users    repository.UserRepository
	swipes   repository.SwipeRepository
	matches  repository.MatchRepository
	messages repository.MessageRepository
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 50
	}
	if opts.SwipesPerUser <= 0 {
		opts.SwipesPerUser = 20
	}
	if opts.LikeRatio <= 0 || opts.LikeRatio > 1 {
		opts.LikeRatio = 0.6
	}
	if opts.MessagesPerMatch < 0 {
		opts.MessagesPerMatch = 0
	}
	s := &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
	if db != nil {
		s.users = repository.NewUserRepository(db)
		s.swipes = repository.NewSwipeRepository(db)
		s.matches = repository.NewMatchRepository(db)
		s.messages = repository.NewMessageRepository(db)
	}
	return s
}

// ClearAll deletes every row of the persistent tables, children first.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		return nil
	}
	tables := database.PersistentModels()
	slices.Reverse(tables)
	for _, model := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("cleared seeded tables", slog.Int("tables", len(tables)))
	return nil
}

// SeedPopulation creates NumUsers complete profiles, lets each of them
// swipe on compatible profiles, and fills every new match with a short
// conversation.
func (s *Seeder) SeedPopulation(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		users = append(users, s.factory.BuildUser(i))
	}
	if err := s.factory.CreateUsersBatch(users); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	summary.Users = len(users)

	if s.opts.DryRun {
		middleware.Logger.Info("dry-run: skipping swipes and messages", slog.Int("users", len(users)))
		return summary, nil
	}

	faker := s.factory.Faker()
	var pairs [][2]*models.User
	for _, actor := range users {
		decided := 0
		for _, idx := range faker.Rand.Perm(len(users)) {
			if decided >= s.opts.SwipesPerUser {
				break
			}
			target := users[idx]
			if target.ID == actor.ID || !Compatible(actor, target) {
				continue
			}
			liked := faker.Float64() < s.opts.LikeRatio
			outcome, err := s.swipes.Record(ctx, actor.ID, target.ID, liked)
			if err != nil {
				return nil, fmt.Errorf("swipe %d -> %d: %w", actor.ID, target.ID, err)
			}
			decided++
			if outcome.Recorded {
				summary.Swipes++
			}
			if outcome.NewMatch {
				summary.Matches++
				pairs = append(pairs, [2]*models.User{actor, target})
			}
		}
	}

	for _, pair := range pairs {
		at := time.Now().Add(-time.Duration(faker.Number(1, 72)) * time.Hour)
		for i := 0; i < s.opts.MessagesPerMatch; i++ {
			// the one who completed the match opens
			sender, receiver := pair[i%2], pair[(i+1)%2]
			at = at.Add(time.Duration(faker.Number(1, 30)) * time.Minute)
			if _, err := s.factory.CreateMessage(sender, receiver, at); err != nil {
				return nil, fmt.Errorf("message %d -> %d: %w", sender.ID, receiver.ID, err)
			}
			summary.Messages++
		}
	}

	middleware.Logger.Info("seeded population",
		slog.String("summary", summary.String()),
		slog.Duration("took", time.Since(start)),
	)
	return summary, nil
}

// Compatible reports whether b would appear in a's discovery deck: b's
// gender is one a wants, and b's interests accept a's gender.
func Compatible(a, b *models.User) bool {
	return slices.Contains(a.Interests.TargetGenders(), b.Gender) &&
		slices.Contains(a.Gender.AcceptingInterests(), b.Interests)
}
