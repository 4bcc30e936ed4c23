// Package seed creates demo and test data for the ember database. It is
// meant for development and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ember/internal/middleware"
	"ember/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var bioOpeners = []string{
	"Weekend hiker,", "Coffee snob,", "Amateur chef,", "Night owl,",
	"Bookworm,", "Dog person,", "Board game fanatic,", "Recovering runner,",
}

// Factory builds users and messages and persists them. In DryRun mode
// nothing is written and synthetic ids are assigned instead.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed), nextID: 1000}
}

// Faker exposes the factory's generator so presets share one random stream.
func (f *Factory) Faker() *gofakeit.Faker {
	return f.faker
}

// BuildUser returns a complete, unsaved profile. The index keeps emails
// unique within one run.
func (f *Factory) BuildUser(index int, overrides ...func(*models.User)) *models.User {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	handle := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, index))

	gender := models.GenderFemale
	if f.faker.Bool() {
		gender = models.GenderMale
	}
	interests := models.InterestBoth
	switch n := f.faker.Number(1, 10); {
	case n <= 4:
		interests = models.InterestMen
	case n <= 8:
		interests = models.InterestWomen
	}

	user := &models.User{
		Name:        first + " " + last,
		Email:       handle + "@example.com",
		Picture:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
		Gender:      gender,
		Interests:   interests,
		Age:         f.faker.Number(18, 60),
		Bio:         f.faker.RandomString(bioOpeners) + " " + strings.ToLower(f.faker.Sentence(8)),
		MainPicture: fmt.Sprintf("https://picsum.photos/seed/%s/800/1000", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(index int, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(index, overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("dry-run CreateUser", slog.String("email", user.Email))
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUsersBatch persists users in a single statement when possible.
func (f *Factory) CreateUsersBatch(users []*models.User) error {
	if f.opts.DryRun {
		for _, u := range users {
			f.nextID++
			u.ID = f.nextID
		}
		middleware.Logger.Info("dry-run CreateUsersBatch", slog.Int("users", len(users)))
		return nil
	}
	return f.db.CreateInBatches(&users, 100).Error
}

// CreateMessage persists a message from sender to receiver sent at.
func (f *Factory) CreateMessage(sender, receiver *models.User, at time.Time, overrides ...func(*models.Message)) (*models.Message, error) {
	msg := &models.Message{
		Content:    f.faker.Sentence(f.faker.Number(3, 12)),
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		CreatedAt:  at,
	}
	for _, override := range overrides {
		override(msg)
	}

	if f.opts.DryRun {
		f.nextID++
		msg.ID = f.nextID
		return msg, nil
	}

	if err := f.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}
