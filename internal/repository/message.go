package repository

import (
	"context"
	"errors"

	"ember/internal/models"
	"ember/internal/observability"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	// ListBetween returns up to limit messages exchanged by a and b,
	// newest first.
	ListBetween(ctx context.Context, a, b uint, limit int) ([]models.Message, error)
	// LatestBetween returns the newest message of userID with each of
	// others that has one.
	LatestBetween(ctx context.Context, userID uint, others []uint) (map[uint]*models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	defer observability.TrackQuery("message_create")()
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewStoreError("save message", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewStoreError("load message", err)
	}
	return &msg, nil
}

func pairScope(a, b uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	}
}

func (r *messageRepository) ListBetween(ctx context.Context, a, b uint, limit int) ([]models.Message, error) {
	defer observability.TrackQuery("messages_list")()
	messages := []models.Message{}
	if err := readDB(r.db).WithContext(ctx).
		Scopes(pairScope(a, b)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, models.NewStoreError("load messages", err)
	}
	return messages, nil
}

func (r *messageRepository) LatestBetween(ctx context.Context, userID uint, others []uint) (map[uint]*models.Message, error) {
	defer observability.TrackQuery("messages_latest")()
	out := make(map[uint]*models.Message, len(others))
	db := readDB(r.db).WithContext(ctx)
	for _, other := range others {
		var latest []models.Message
		if err := db.Scopes(pairScope(userID, other)).
			Order("created_at DESC, id DESC").
			Limit(1).
			Find(&latest).Error; err != nil {
			return nil, models.NewStoreError("load last message", err)
		}
		if len(latest) == 1 {
			msg := latest[0]
			out[other] = &msg
		}
	}
	return out, nil
}
