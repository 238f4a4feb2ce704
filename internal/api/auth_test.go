package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mtsang/chatwire/internal/config"
	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestApp(t *testing.T, db database.ChatRepository) *ChatApp {
	return NewChatApp(http.NewServeMux(), testutil.TestLogger(t), nil, db, &config.Config{
		ServerAddr: "localhost:8000",
		SigningKey: []byte("test-signing-key"),
		WsTokenTTL: 5 * time.Minute,
	})
}

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func TestJwtRoundTrip(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	token, err := app.createJwtForSession(42, time.Minute)
	assert.NoError(t, err, "expected no error creating session token")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token to verify")
	assert.Equal(t, 42, userId)
}

func TestExtractUserIdFromToken_Invalid(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	t.Run("garbage token", func(t *testing.T) {
		_, err := app.extractUserIdFromToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(42, -time.Minute)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected expired token to be rejected")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := newTestApp(t, &database.MockChatRepository{})
		other.signingKey = []byte("another-key")

		token, err := other.createJwtForSession(42, time.Minute)
		assert.NoError(t, err)

		_, err = app.extractUserIdFromToken(token)
		assert.Error(t, err, "expected token signed with another key to be rejected")
	})
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t, &database.MockChatRepository{})

	handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userId, ok := UserId(r.Context())
		assert.True(t, ok, "expected user id in request context")
		assert.Equal(t, 42, userId)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)

		handler(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		token, err := app.createJwtForSession(42, time.Minute)
		assert.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(createJwtCookie(token, time.Minute))

		handler(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
	})
}

func Test_hashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("hunter2")
	assert.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, verifyPassword(hash, "hunter2"))
	assert.False(t, verifyPassword(hash, "wrong"))
}
