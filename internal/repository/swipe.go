package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"ember/internal/models"
	"ember/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SwipeRepository stores swipe decisions and detects mutual likes.
type SwipeRepository interface {
	// Record applies actor's decision about target and reports the match
	// state after it, atomically.
	Record(ctx context.Context, actorID, targetID uint, liked bool) (*models.SwipeOutcome, error)
	// LikedBy returns which of actorIDs liked targetID.
	LikedBy(ctx context.Context, targetID uint, actorIDs []uint) (map[uint]bool, error)
	// LikedTargets returns which of targetIDs actorID liked.
	LikedTargets(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error)
}

type swipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository returns a new SwipeRepository implementation.
func NewSwipeRepository(db *gorm.DB) SwipeRepository {
	return &swipeRepository{db: db}
}

func (r *swipeRepository) Record(ctx context.Context, actorID, targetID uint, liked bool) (*models.SwipeOutcome, error) {
	if actorID == targetID {
		return nil, models.NewValidationError("cannot swipe on yourself")
	}
	defer observability.TrackQuery("swipe_record")()

	outcome := &models.SwipeOutcome{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, actorID, targetID); err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Swipe{ActorID: actorID, TargetID: targetID, Liked: liked})
		if res.Error != nil {
			return res.Error
		}
		outcome.Recorded = res.RowsAffected > 0

		// A repeated swipe keeps the first decision.
		var current models.Swipe
		if err := tx.Where("actor_id = ? AND target_id = ?", actorID, targetID).First(&current).Error; err != nil {
			return err
		}
		if !current.Liked {
			return nil
		}

		var reciprocal int64
		if err := tx.Model(&models.Swipe{}).
			Where("actor_id = ? AND target_id = ? AND liked = ?", targetID, actorID, true).
			Count(&reciprocal).Error; err != nil {
			return err
		}
		if reciprocal == 0 {
			return nil
		}
		outcome.IsMatch = true

		a, b := models.OrderedPair(actorID, targetID)
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Match{UserAID: a, UserBID: b})
		if res.Error != nil {
			return res.Error
		}
		outcome.NewMatch = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, storeError("record swipe", err)
	}
	return outcome, nil
}

// lockPair verifies both users exist. On postgres it also takes row locks in
// id order so crossing likes on the same pair serialize.
func lockPair(tx *gorm.DB, actorID, targetID uint) error {
	lo, hi := models.OrderedPair(actorID, targetID)
	q := tx.Model(&models.User{}).Where("id IN ?", []uint{lo, hi}).Order("id ASC")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var found []uint
	if err := q.Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == 2 {
		return nil
	}
	for _, id := range []uint{actorID, targetID} {
		if !slices.Contains(found, id) {
			return models.NewNotFoundError("User", id)
		}
	}
	return errors.New("swipe: unexpected user lock result")
}

func (r *swipeRepository) LikedBy(ctx context.Context, targetID uint, actorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(actorIDs))
	if len(actorIDs) == 0 {
		return out, nil
	}
	var ids []uint
	if err := readDB(r.db).WithContext(ctx).Model(&models.Swipe{}).
		Where("target_id = ? AND liked = ? AND actor_id IN ?", targetID, true, actorIDs).
		Pluck("actor_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(fmt.Sprintf("load likers of user %d", targetID), err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *swipeRepository) LikedTargets(ctx context.Context, actorID uint, targetIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var ids []uint
	if err := readDB(r.db).WithContext(ctx).Model(&models.Swipe{}).
		Where("actor_id = ? AND liked = ? AND target_id IN ?", actorID, true, targetIDs).
		Pluck("target_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(fmt.Sprintf("load likes of user %d", actorID), err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
