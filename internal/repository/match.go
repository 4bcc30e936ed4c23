package repository

import (
	"context"

	"ember/internal/models"
	"ember/internal/observability"

	"gorm.io/gorm"
)

// MatchRepository reads the mutual-like index.
type MatchRepository interface {
	ListForUser(ctx context.Context, userID uint) ([]models.Match, error)
	Exists(ctx context.Context, userID, otherID uint) (bool, error)
	// Backfill inserts index rows for mutual likes that have none and
	// returns how many were added.
	Backfill(ctx context.Context) (int64, error)
}

type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository returns a new MatchRepository implementation.
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) ListForUser(ctx context.Context, userID uint) ([]models.Match, error) {
	defer observability.TrackQuery("matches_list")()
	var matches []models.Match
	if err := readDB(r.db).WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("id ASC").
		Find(&matches).Error; err != nil {
		return nil, models.NewStoreError("list matches", err)
	}
	return matches, nil
}

// Exists reads the primary so a match created a moment ago is visible.
func (r *matchRepository) Exists(ctx context.Context, userID, otherID uint) (bool, error) {
	a, b := models.OrderedPair(userID, otherID)
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Count(&count).Error; err != nil {
		return false, models.NewStoreError("check match", err)
	}
	return count > 0, nil
}

const backfillMatchesSQL = `
INSERT INTO matches (user_a_id, user_b_id, created_at)
SELECT s1.actor_id, s1.target_id,
       CASE WHEN s1.created_at > s2.created_at THEN s1.created_at ELSE s2.created_at END
FROM swipes s1
JOIN swipes s2 ON s2.actor_id = s1.target_id AND s2.target_id = s1.actor_id
WHERE s1.liked = ? AND s2.liked = ? AND s1.actor_id < s1.target_id
ON CONFLICT DO NOTHING`

func (r *matchRepository) Backfill(ctx context.Context) (int64, error) {
	defer observability.TrackQuery("matches_backfill")()
	res := r.db.WithContext(ctx).Exec(backfillMatchesSQL, true, true)
	if res.Error != nil {
		return 0, models.NewStoreError("backfill matches", res.Error)
	}
	return res.RowsAffected, nil
}
