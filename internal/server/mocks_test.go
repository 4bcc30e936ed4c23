package server

import (
	"context"

	"ember/internal/models"
	"ember/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindOrCreateByEmail(ctx context.Context, user *models.User) (*models.User, bool, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) ListWithMainPicture(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]models.User, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// MockSwipeRepository is a mock of the SwipeRepository interface
type MockSwipeRepository struct {
	mock.Mock
}

func (m *MockSwipeRepository) Record(ctx context.Context, actorID, targetID uint, liked bool) (*models.SwipeOutcome, error) {
	args := m.Called(ctx, actorID, targetID, liked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SwipeOutcome), args.Error(1)
}

func (m *MockSwipeRepository) LikedBy(ctx context.Context, targetID uint, actorIDs []uint) (map[uint]bool, error) {
	args := m.Called(ctx, targetID, actorIDs)
	return args.Get(0).(map[uint]bool), args.Error(1)
}

func (m *MockSwipeRepository) LikedTargets(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error) {
	args := m.Called(ctx, actorID, targetIDs)
	return args.Get(0).(map[uint]bool), args.Error(1)
}

// MockMatchRepository is a mock of the MatchRepository interface
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) ListForUser(ctx context.Context, userID uint) ([]models.Match, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Match), args.Error(1)
}

func (m *MockMatchRepository) Exists(ctx context.Context, userID, otherID uint) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMatchRepository) Backfill(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockMessageRepository is a mock of the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) ListBetween(ctx context.Context, a, b uint, limit int) ([]models.Message, error) {
	args := m.Called(ctx, a, b, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) LatestBetween(ctx context.Context, userID uint, others []uint) (map[uint]*models.Message, error) {
	args := m.Called(ctx, userID, others)
	return args.Get(0).(map[uint]*models.Message), args.Error(1)
}
