package seed

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"

	"ember/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yml
var fixtureFS embed.FS

// Fixture is a hand-written scenario: named users, their swipes and the
// messages exchanged between matches.
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Swipes   []FixtureSwipe   `yaml:"swipes"`
	Messages []FixtureMessage `yaml:"messages"`
}

// FixtureUser is a profile addressed by Key elsewhere in the fixture.
type FixtureUser struct {
	Key         string          `yaml:"key"`
	Email       string          `yaml:"email"`
	Name        string          `yaml:"name"`
	Gender      models.Gender   `yaml:"gender"`
	Interests   models.Interest `yaml:"interests"`
	Age         int             `yaml:"age"`
	Bio         string          `yaml:"bio"`
	MainPicture string          `yaml:"mainPicture"`
}

// FixtureSwipe is one decision.
type FixtureSwipe struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Liked bool   `yaml:"liked"`
}

// FixtureMessage is one message between matched users.
type FixtureMessage struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Content string `yaml:"content"`
}

// ErrInvalidFixture wraps every fixture validation failure.
var ErrInvalidFixture = errors.New("invalid fixture")

// LoadFixture decodes and validates a YAML fixture. Unknown fields are
// rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// BuiltinFixture loads one of the fixtures shipped with the binary, by
// file name without extension.
func BuiltinFixture(name string) (*Fixture, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".yml")
	if err != nil {
		return nil, fmt.Errorf("unknown fixture %q", name)
	}
	return LoadFixture(bytes.NewReader(data))
}

// Validate checks keys and references.
func (f *Fixture) Validate() error {
	keys := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		switch {
		case u.Key == "":
			return fmt.Errorf("%w: user %d has no key", ErrInvalidFixture, i)
		case keys[u.Key]:
			return fmt.Errorf("%w: duplicate user key %q", ErrInvalidFixture, u.Key)
		case models.NormalizeEmail(u.Email) == "":
			return fmt.Errorf("%w: user %q has no email", ErrInvalidFixture, u.Key)
		case u.Gender != "" && !u.Gender.Valid():
			return fmt.Errorf("%w: user %q has gender %q", ErrInvalidFixture, u.Key, u.Gender)
		case u.Interests != "" && !u.Interests.Valid():
			return fmt.Errorf("%w: user %q has interests %q", ErrInvalidFixture, u.Key, u.Interests)
		}
		keys[u.Key] = true
	}

	ref := func(kind string, i int, from, to string) error {
		if !keys[from] || !keys[to] {
			return fmt.Errorf("%w: %s %d references unknown user (%q -> %q)", ErrInvalidFixture, kind, i, from, to)
		}
		if from == to {
			return fmt.Errorf("%w: %s %d targets its author %q", ErrInvalidFixture, kind, i, from)
		}
		return nil
	}
	for i, s := range f.Swipes {
		if err := ref("swipe", i, s.From, s.To); err != nil {
			return err
		}
	}
	for i, m := range f.Messages {
		if err := ref("message", i, m.From, m.To); err != nil {
			return err
		}
		if m.Content == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidFixture, i)
		}
	}
	return nil
}

// ApplyFixture writes f. Users are found or created by email and their
// profile fields overwritten; swipes keep the first decision of a pair;
// messages require the pair to be matched. It returns the users by key.
func (s *Seeder) ApplyFixture(ctx context.Context, f *Fixture) (map[string]*models.User, error) {
	if s.opts.DryRun {
		return nil, errors.New("fixtures cannot be applied in dry-run mode")
	}

	users := make(map[string]*models.User, len(f.Users))
	for _, fu := range f.Users {
		u, _, err := s.users.FindOrCreateByEmail(ctx, &models.User{
			Email: models.NormalizeEmail(fu.Email),
			Name:  fu.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", fu.Key, err)
		}
		u.Name = fu.Name
		u.Gender = fu.Gender
		u.Interests = fu.Interests
		u.Age = fu.Age
		u.Bio = fu.Bio
		u.MainPicture = fu.MainPicture
		if err := s.users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("user %q: %w", fu.Key, err)
		}
		users[fu.Key] = u
	}

	for i, sw := range f.Swipes {
		if _, err := s.swipes.Record(ctx, users[sw.From].ID, users[sw.To].ID, sw.Liked); err != nil {
			return nil, fmt.Errorf("swipe %d: %w", i, err)
		}
	}

	for i, m := range f.Messages {
		from, to := users[m.From], users[m.To]
		matched, err := s.matches.Exists(ctx, from.ID, to.ID)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if !matched {
			return nil, fmt.Errorf("%w: message %d between %q and %q who are not matched", ErrInvalidFixture, i, m.From, m.To)
		}
		if err := s.messages.Create(ctx, &models.Message{Content: m.Content, SenderID: from.ID, ReceiverID: to.ID}); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return users, nil
}
