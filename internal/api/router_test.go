package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/dashboard"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/infra/memory"
	"github.com/dvloznov/finance-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/finance-assistant/internal/llm"
	"github.com/dvloznov/finance-assistant/internal/pipeline"
)

const secret = "router-secret"

func token(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	client := llm.CompleterFunc(func(ctx context.Context, systemPrompt string, msgs []domain.ChatMessage) (string, error) {
		if strings.HasPrefix(systemPrompt, "You are a classifier") {
			return `{"intent":"record_transaction","type":"expense","amount":50000,"category":"Makanan","description":"Makan siang","date":null}`, nil
		}
		return "Sudah dicatat!", nil
	})

	repo := memory.New()
	cache := dashboard.NewCache(time.Minute)
	t.Cleanup(cache.Close)
	summaries := dashboard.NewService(repo, repo, cache, zerolog.Nop())

	auth, err := middleware.NewAuthenticator(config.AuthConfig{JWTSecret: secret})
	require.NoError(t, err)

	return NewRouter(Deps{
		Turns:        pipeline.New(client, repo, summaries),
		Summaries:    summaries,
		Transactions: repo,
		Jobs:         inmemory.NewStore(),
		Auth:         auth,
		ChatLimiter:  middleware.NewRateLimiter(60),
		Log:          zerolog.Nop(),
	})
}

func TestRouter_ChatThenDashboard(t *testing.T) {
	router := newTestRouter(t)
	bearer := "Bearer " + token(t, "user_1")

	// Prime the dashboard cache so the insert must invalidate it.
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?timeRange=1m", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalExpense":0`)

	req = httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"makan siang 50 ribu"}]}`))
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var turn pipeline.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, "Sudah dicatat!", turn.Text)
	require.NotNil(t, turn.Transaction)
	require.True(t, turn.Transaction.Success)
	assert.Equal(t, "user_1", turn.Transaction.Saved.UserID)
	assert.NotEmpty(t, turn.Transaction.Saved.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard?timeRange=1m", nil)
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 50000.0, summary.TotalExpense)
	assert.Equal(t, -50000.0, summary.TotalBalance)
	require.Len(t, summary.RecentTransactions, 1)

	// Another user sees nothing.
	req = httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "user_2"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_AuthAndMethods(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "user_1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
