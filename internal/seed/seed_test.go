package seed

import (
	"context"
	"strings"
	"testing"

	"ember/internal/database"
	"ember/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestBuildUser_IsComplete(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, RandSeed: 7})
	for i := 0; i < 20; i++ {
		u := f.BuildUser(i)
		if !u.ProfileComplete() {
			t.Fatalf("user %d is not complete: %+v", i, u)
		}
		if !u.Gender.Valid() || !u.Interests.Valid() {
			t.Fatalf("user %d has invalid gender/interests: %q/%q", i, u.Gender, u.Interests)
		}
		if u.Age < 18 || u.Age > 60 {
			t.Fatalf("user %d age out of range: %d", i, u.Age)
		}
		if !strings.HasSuffix(u.Email, "@example.com") {
			t.Fatalf("unexpected email %q", u.Email)
		}
	}

	u := f.BuildUser(1, func(u *models.User) { u.Name = "Override" })
	if u.Name != "Override" {
		t.Fatalf("override not applied: %q", u.Name)
	}
}

func TestFactory_DryRunAssignsIDs(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true})
	a, err := f.CreateUser(0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := f.CreateUser(1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("expected increasing synthetic ids, got %d and %d", a.ID, b.ID)
	}
}

func TestCompatible(t *testing.T) {
	man := &models.User{Gender: models.GenderMale, Interests: models.InterestWomen}
	woman := &models.User{Gender: models.GenderFemale, Interests: models.InterestMen}
	lesbian := &models.User{Gender: models.GenderFemale, Interests: models.InterestWomen}
	bi := &models.User{Gender: models.GenderFemale, Interests: models.InterestBoth}

	cases := []struct {
		a, b *models.User
		want bool
	}{
		{man, woman, true},
		{woman, man, true},
		{man, lesbian, false},
		{man, bi, true},
		{bi, lesbian, true},
		{lesbian, woman, false},
	}
	for i, c := range cases {
		if got := Compatible(c.a, c.b); got != c.want {
			t.Fatalf("case %d: Compatible = %v, want %v", i, got, c.want)
		}
	}
}

func TestSeedPopulation(t *testing.T) {
	db := openDB(t)
	s := NewSeeder(db, Options{NumUsers: 24, SwipesPerUser: 23, LikeRatio: 1, MessagesPerMatch: 2, RandSeed: 42})

	summary, err := s.SeedPopulation(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if summary.Users != 24 || count(t, db, &models.User{}) != 24 {
		t.Fatalf("expected 24 users, summary %s", summary)
	}
	if int64(summary.Swipes) != count(t, db, &models.Swipe{}) {
		t.Fatalf("swipes mismatch: summary %s", summary)
	}
	if int64(summary.Matches) != count(t, db, &models.Match{}) {
		t.Fatalf("matches mismatch: summary %s", summary)
	}
	if summary.Messages != 2*summary.Matches || int64(summary.Messages) != count(t, db, &models.Message{}) {
		t.Fatalf("messages mismatch: summary %s", summary)
	}

	// with every decision a like, every compatible pair that both swiped is matched
	var swipes []models.Swipe
	if err := db.Find(&swipes).Error; err != nil {
		t.Fatalf("list swipes: %v", err)
	}
	for _, sw := range swipes {
		if !sw.Liked {
			t.Fatalf("unexpected reject from %d to %d", sw.ActorID, sw.TargetID)
		}
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, m := range database.PersistentModels() {
		if n := count(t, db, m); n != 0 {
			t.Fatalf("%T still has %d rows", m, n)
		}
	}
}

func TestSeedPopulation_DryRun(t *testing.T) {
	s := NewSeeder(nil, Options{NumUsers: 5, DryRun: true})
	summary, err := s.SeedPopulation(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if summary.Users != 5 || summary.Swipes != 0 {
		t.Fatalf("unexpected summary %s", summary)
	}
}
