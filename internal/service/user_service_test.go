package service

import (
	"context"
	"strings"
	"testing"

	"ember/internal/cache"
	"ember/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Authenticate(t *testing.T) {
	repo := noopUserRepo()
	var stored *models.User
	repo.findOrCreateFn = func(_ context.Context, u *models.User) (*models.User, bool, error) {
		stored = u
		u.ID = 5
		return u, true, nil
	}
	svc := NewUserService(repo)

	user, created, err := svc.Authenticate(context.Background(), AuthenticateInput{Email: " Jane.Doe@Mail.com", Picture: "https://p"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, "jane.doe@mail.com", stored.Email)
	assert.Equal(t, "jane.doe", stored.Name, "name falls back to the email local part")

	for _, email := range []string{"", "nope", "@mail.com", "jane@"} {
		_, _, err := svc.Authenticate(context.Background(), AuthenticateInput{Email: email})
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err), email)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := noopUserRepo()
	current := &models.User{ID: 1, Name: "Ann", Bio: "old bio", Interests: models.InterestMen}
	repo.getByIDFn = func(context.Context, uint) (*models.User, error) {
		copied := *current
		return &copied, nil
	}
	var saved *models.User
	repo.updateFn = func(_ context.Context, u *models.User) error {
		saved = u
		return nil
	}
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:      1,
		MainPicture: "https://img/1.jpg",
		Gender:      models.GenderFemale,
		Age:         31,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "old bio", user.Bio, "empty fields are left unchanged")
	assert.Equal(t, models.InterestMen, user.Interests)
	assert.Equal(t, models.GenderFemale, user.Gender)
	assert.Equal(t, 31, user.Age)
	assert.Same(t, user, saved)

	invalid := []UpdateProfileInput{
		{UserID: 1, Interests: "aliens"},
		{UserID: 1, Gender: "other"},
		{UserID: 1, Age: 17},
		{UserID: 1, Age: 121},
		{UserID: 1, Bio: strings.Repeat("é", 501)},
		{UserID: 1, Name: strings.Repeat("n", 101)},
	}
	for _, in := range invalid {
		saved = nil
		_, err := svc.UpdateProfile(ctx, in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		assert.Nil(t, saved)
	}
}

func TestUserService_UpdateProfile_NotFound(t *testing.T) {
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	svc := NewUserService(repo)

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: 9, Bio: "x"})
	assert.True(t, models.IsNotFound(err))
}

func TestUserService_IsProfileComplete(t *testing.T) {
	repo := noopUserRepo()
	users := map[uint]*models.User{
		1: {ID: 1, Bio: "b", Interests: models.InterestBoth, MainPicture: "m"},
		2: {ID: 2, Bio: "b", Interests: models.InterestBoth},
		3: {ID: 3, Bio: "  ", Interests: models.InterestBoth, MainPicture: "m"},
	}
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) { return users[id], nil }
	svc := NewUserService(repo)

	for id, want := range map[uint]bool{1: true, 2: false, 3: false} {
		got, err := svc.IsProfileComplete(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %d", id)
	}
}

func TestUserService_LookupByEmail(t *testing.T) {
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "known@example.com" {
			return &models.User{ID: 3, Email: email}, nil
		}
		return nil, nil
	}
	svc := NewUserService(repo)

	u, err := svc.LookupByEmail(context.Background(), "KNOWN@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(3), u.ID)

	_, err = svc.LookupByEmail(context.Background(), "ghost@example.com")
	assert.True(t, models.IsNotFound(err))

	_, err = svc.LookupByEmail(context.Background(), " ")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestUserService_ShowcaseIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	repo := noopUserRepo()
	calls := 0
	repo.listWithMainPictureFn = func(_ context.Context, limit int) ([]models.User, error) {
		calls++
		assert.Equal(t, 10, limit)
		return []models.User{
			{ID: 1, Name: "A", Email: "a@x.io", MainPicture: "m1"},
			{ID: 2, Name: "B", Email: "b@x.io", MainPicture: "m2"},
		}, nil
	}
	svc := NewUserService(repo)
	ctx := context.Background()

	first, err := svc.Showcase(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "m1", first[0].MainPicture)

	second, err := svc.Showcase(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(cache.ShowcaseKey))
}
