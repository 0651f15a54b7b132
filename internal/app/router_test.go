package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/auth"
	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/config"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/features/admin"
	"serotonyl.ru/stars-casino/internal/features/casino"
	"serotonyl.ru/stars-casino/internal/features/deposits"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// headerResolver: "user:<id>" — валидный пользователь, остальное — отказ.
type headerResolver struct{}

func (headerResolver) Resolve(initData string) (*auth.Identity, error) {
	raw, ok := strings.CutPrefix(initData, "user:")
	if !ok {
		return nil, common.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, common.ErrUnauthenticated
	}
	return &auth.Identity{UserID: id}, nil
}

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	table, err := casino.NewPrizeTable(casino.DefaultPrizes())
	require.NoError(t, err)

	cfg := &config.Config{FrontendURL: "*", AdminIDs: []int64{99}, TelegramUpdatesMode: config.UpdatesModePolling}
	menu := deposits.NewMenu([]config.DepositTier{{Amount: 100, BonusPercent: 5}})

	return NewRouter(context.Background(), cfg, RouterDeps{
		DB:       db,
		Verifier: headerResolver{},
		Accounts: accounts.NewHandler(nil),
		Casino:   casino.NewHandler(casino.NewService(nil, table, nil, casino.Options{Stakes: []int64{10}})),
		Deposits: deposits.NewHandler(deposits.NewService(nil, nil, menu, nil)),
		Admin:    admin.NewHandler(nil),
	})
}

func get(t *testing.T, h http.Handler, path, initData string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if initData != "" {
		req.Header.Set("X-Telegram-Init-Data", initData)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestHealth(t *testing.T) {
	code, body := get(t, newTestRouter(t, fakePinger{}), "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["botConfigured"])

	code, body = get(t, newTestRouter(t, fakePinger{err: errors.New("down")}), "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["database"])
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	code, body := get(t, router, "/api/prizes", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["prizes"].([]any), 21)

	code, body = get(t, router, "/api/products", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"].([]any), 1)
}

func TestProtectedRoutes(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	for _, path := range []string{"/api/user", "/api/balance", "/api/history", "/api/admin/stats"} {
		code, body := get(t, router, path, "")
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, false, body["success"])
	}

	code, body := get(t, router, "/api/admin/stats", "user:5")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["error"])
}

func TestWebhookNotMountedInPollingMode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	newTestRouter(t, fakePinger{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
