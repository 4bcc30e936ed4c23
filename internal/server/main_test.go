package server

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"ember/internal/config"
	"ember/internal/featureflags"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           testSecret,
		Port:                "0",
		Env:                 "test",
		CandidateBatchSize:  10,
		MessageHistoryLimit: 50,
		MessageMaxLength:    2000,
		WSTicketTTLSeconds:  30,
	}
}

type mockRepos struct {
	users    *MockUserRepository
	swipes   *MockSwipeRepository
	matches  *MockMatchRepository
	messages *MockMessageRepository
}

// newMockServer returns a server whose services run on testify mocks.
func newMockServer(t *testing.T, rdb *redis.Client) (*Server, *mockRepos) {
	t.Helper()
	repos := &mockRepos{
		users:    new(MockUserRepository),
		swipes:   new(MockSwipeRepository),
		matches:  new(MockMatchRepository),
		messages: new(MockMessageRepository),
	}
	s := &Server{
		config:       testConfig(),
		redis:        rdb,
		userRepo:     repos.users,
		swipeRepo:    repos.swipes,
		matchRepo:    repos.matches,
		messageRepo:  repos.messages,
		featureFlags: featureflags.Parse(""),
	}
	s.wire()
	t.Cleanup(s.bus.Shutdown)
	return s, repos
}

// asUser stands in for AuthRequired.
func asUser(id uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		return c.Next()
	}
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, dest), string(body))
}
