package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ember/internal/database"
	"ember/internal/models"
	"ember/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRepoStub struct {
	getByIDFn             func(context.Context, uint) (*models.User, error)
	getByEmailFn          func(context.Context, string) (*models.User, error)
	findOrCreateFn        func(context.Context, *models.User) (*models.User, bool, error)
	updateFn              func(context.Context, *models.User) error
	listWithMainPictureFn func(context.Context, int) ([]models.User, error)
	findCandidatesFn      func(context.Context, repository.CandidateQuery) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) FindOrCreateByEmail(ctx context.Context, u *models.User) (*models.User, bool, error) {
	return s.findOrCreateFn(ctx, u)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}
func (s *userRepoStub) ListWithMainPicture(ctx context.Context, limit int) ([]models.User, error) {
	return s.listWithMainPictureFn(ctx, limit)
}
func (s *userRepoStub) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]models.User, error) {
	return s.findCandidatesFn(ctx, q)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: fmt.Sprintf("user%d", id)}, nil
		},
		getByEmailFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		findOrCreateFn: func(_ context.Context, u *models.User) (*models.User, bool, error) {
			u.ID = 1
			return u, true, nil
		},
		updateFn:              func(context.Context, *models.User) error { return nil },
		listWithMainPictureFn: func(context.Context, int) ([]models.User, error) { return nil, nil },
		findCandidatesFn:      func(context.Context, repository.CandidateQuery) ([]models.User, error) { return nil, nil },
	}
}

type swipeRepoStub struct {
	recordFn       func(context.Context, uint, uint, bool) (*models.SwipeOutcome, error)
	likedByFn      func(context.Context, uint, []uint) (map[uint]bool, error)
	likedTargetsFn func(context.Context, uint, []uint) (map[uint]bool, error)
}

func (s *swipeRepoStub) Record(ctx context.Context, actorID, targetID uint, liked bool) (*models.SwipeOutcome, error) {
	return s.recordFn(ctx, actorID, targetID, liked)
}
func (s *swipeRepoStub) LikedBy(ctx context.Context, targetID uint, actorIDs []uint) (map[uint]bool, error) {
	return s.likedByFn(ctx, targetID, actorIDs)
}
func (s *swipeRepoStub) LikedTargets(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error) {
	return s.likedTargetsFn(ctx, actorID, targetIDs)
}

func noopSwipeRepo() *swipeRepoStub {
	return &swipeRepoStub{
		recordFn: func(context.Context, uint, uint, bool) (*models.SwipeOutcome, error) {
			return &models.SwipeOutcome{Recorded: true}, nil
		},
		likedByFn:      func(context.Context, uint, []uint) (map[uint]bool, error) { return map[uint]bool{}, nil },
		likedTargetsFn: func(context.Context, uint, []uint) (map[uint]bool, error) { return map[uint]bool{}, nil },
	}
}

type matchRepoStub struct {
	listForUserFn func(context.Context, uint) ([]models.Match, error)
	existsFn      func(context.Context, uint, uint) (bool, error)
}

func (s *matchRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.Match, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *matchRepoStub) Exists(ctx context.Context, a, b uint) (bool, error) {
	return s.existsFn(ctx, a, b)
}
func (s *matchRepoStub) Backfill(context.Context) (int64, error) { return 0, nil }

type messageRepoStub struct {
	createFn        func(context.Context, *models.Message) error
	getByIDFn       func(context.Context, uint) (*models.Message, error)
	listBetweenFn   func(context.Context, uint, uint, int) ([]models.Message, error)
	latestBetweenFn func(context.Context, uint, []uint) (map[uint]*models.Message, error)
}

func (s *messageRepoStub) Create(ctx context.Context, msg *models.Message) error {
	return s.createFn(ctx, msg)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) ListBetween(ctx context.Context, a, b uint, limit int) ([]models.Message, error) {
	return s.listBetweenFn(ctx, a, b, limit)
}
func (s *messageRepoStub) LatestBetween(ctx context.Context, userID uint, others []uint) (map[uint]*models.Message, error) {
	return s.latestBetweenFn(ctx, userID, others)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn: func(_ context.Context, msg *models.Message) error {
			msg.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Message, error) {
			return nil, models.NewNotFoundError("Message", id)
		},
		listBetweenFn: func(context.Context, uint, uint, int) ([]models.Message, error) { return []models.Message{}, nil },
		latestBetweenFn: func(context.Context, uint, []uint) (map[uint]*models.Message, error) {
			return map[uint]*models.Message{}, nil
		},
	}
}

// relayRecorder captures relayed messages.
type relayRecorder struct {
	mu   sync.Mutex
	msgs []*models.Message
}

func (r *relayRecorder) Relay(_ context.Context, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *relayRecorder) relayed() []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Message(nil), r.msgs...)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// onboard creates a user with a complete profile.
func onboard(t *testing.T, db *gorm.DB, name string, g models.Gender, in models.Interest) *models.User {
	t.Helper()
	u := &models.User{
		Name:        name,
		Email:       name + "@example.com",
		Gender:      g,
		Interests:   in,
		Age:         29,
		Bio:         "bio of " + name,
		MainPicture: "https://img.example.com/" + name + ".jpg",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
