package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/echo-social/echo-backend/internal/auth"
	"github.com/echo-social/echo-backend/internal/config"
	"github.com/echo-social/echo-backend/internal/middleware"
	"github.com/echo-social/echo-backend/internal/models"
)

// testPassword is the plaintext behind every seeded user's hash.
const testPassword = "correct horse battery"

type testEnv struct {
	store  *fakeStore
	tokens *auth.TokenManager
	ts     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	cfg := config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
		JWTIssuer:   "echo-test",
		SessionTTL:  24 * time.Hour,
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	requireAuth := middleware.Auth(tokens)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now()).Register(mux)
	NewUserHandler(store, tokens, &cfg).Register(mux, requireAuth)
	NewTweetHandler(store).Register(mux, requireAuth)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &testEnv{store: store, tokens: tokens, ts: ts}
}

// seedUser inserts a user directly into the fake store with testPassword.
func (e *testEnv) seedUser(t *testing.T, name, username, email string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := e.store.CreateUser(context.Background(), models.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) seedTweet(t *testing.T, authorID, body string) models.Tweet {
	t.Helper()

	tweet, err := e.store.CreateTweet(context.Background(), models.Tweet{AuthorID: authorID, Body: body})
	require.NoError(t, err)
	return tweet
}

// request performs an HTTP call against the test server. A non-empty asUser
// attaches a valid session cookie for that user ID. The decoded envelope is
// returned alongside the response.
func (e *testEnv) request(t *testing.T, method, path string, body any, asUser string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if asUser != "" {
		token, err := e.tokens.Generate(asUser)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	return nil
}
