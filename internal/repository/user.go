package repository

import (
	"context"
	"errors"

	"ember/internal/cache"
	"ember/internal/models"
	"ember/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CandidateQuery selects discovery candidates for RequesterID.
type CandidateQuery struct {
	RequesterID uint
	Genders     []models.Gender
	Interests   []models.Interest
	// LikersFirst orders users who already liked the requester first.
	LikersFirst bool
	Limit       int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateByEmail(ctx context.Context, user *models.User) (*models.User, bool, error)
	Update(ctx context.Context, user *models.User) error
	ListWithMainPicture(ctx context.Context, limit int) ([]models.User, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("user_get")()
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewStoreError("load user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStoreError("load user", err)
	}
	return &user, nil
}

// FindOrCreateByEmail inserts user unless its email is taken, then returns
// the stored row. The bool reports whether this call created it.
func (r *userRepository) FindOrCreateByEmail(ctx context.Context, user *models.User) (*models.User, bool, error) {
	defer observability.TrackQuery("user_find_or_create")()

	user.Email = models.NormalizeEmail(user.Email)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(user)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return nil, false, models.NewValidationError("User already exists")
		}
		return nil, false, models.NewStoreError("create user", res.Error)
	}
	if res.RowsAffected == 1 && user.ID != 0 {
		return user, true, nil
	}

	var existing models.User
	if err := r.db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error; err != nil {
		return nil, false, models.NewStoreError("load user", err)
	}
	return &existing, false, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("user_update")()
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewStoreError("update user", err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) ListWithMainPicture(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Where("main_picture <> ''").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewStoreError("list users", err)
	}
	return users, nil
}

// FindCandidates returns complete profiles matching the gender and interest
// filters that q.RequesterID has not swiped on yet, ordered by id.
func (r *userRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.User, error) {
	defer observability.TrackQuery("candidates_select")()

	if len(q.Genders) == 0 || len(q.Interests) == 0 {
		return []models.User{}, nil
	}
	genders := make([]string, len(q.Genders))
	for i, g := range q.Genders {
		genders[i] = string(g)
	}
	interests := make([]string, len(q.Interests))
	for i, in := range q.Interests {
		interests[i] = string(in)
	}

	query := readDB(r.db).WithContext(ctx).Model(&models.User{}).
		Where("id <> ?", q.RequesterID).
		Where("gender IN ?", genders).
		Where("interests IN ?", interests).
		Where("TRIM(main_picture) <> ''").
		Where("TRIM(bio) <> ''").
		Where("NOT EXISTS (SELECT 1 FROM swipes s WHERE s.actor_id = ? AND s.target_id = users.id)", q.RequesterID)

	if q.LikersFirst {
		query = query.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "EXISTS (SELECT 1 FROM swipes l WHERE l.actor_id = users.id AND l.target_id = ? AND l.liked = ?) DESC, id ASC",
			Vars: []interface{}{q.RequesterID, true},
		}})
	} else {
		query = query.Order("id ASC")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, models.NewStoreError("select candidates", err)
	}
	return users, nil
}
