package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/auth"
	"serotonyl.ru/stars-casino/internal/common"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{common.ErrUnauthenticated, 401, CodeUnauthenticated},
		{fmt.Errorf("ставка 7: %w", common.ErrInvalidStake), 400, CodeValidation},
		{common.ErrInvalidDepositTier, 400, CodeValidation},
		{common.ErrInvalidAmount, 400, CodeValidation},
		{common.ErrAccountBanned, 403, CodeAccountBanned},
		{common.ErrNotAdmin, 403, CodeForbidden},
		{common.ErrInsufficientBalance, 402, CodeInsufficientBalance},
		{common.ErrUserNotFound, 404, CodeNotFound},
		{common.ErrPaymentsUnavailable, 503, CodePaymentsUnavailable},
		{errors.New("pq: connection reset"), 500, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondError(w, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decodeError(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error)
		})
	}
}

func TestRespondErrorHidesInternalMessage(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=secret"))
	body := decodeError(t, w)
	assert.NotContains(t, body.Message, "secret")
}

func TestRespondOK(t *testing.T) {
	w := httptest.NewRecorder()
	RespondOK(w, map[string]any{"balance": 150})

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(150), body["balance"])
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestDecodeJSON(t *testing.T) {
	type req struct {
		Bet int64 `json:"bet" validate:"required,gt=0"`
	}

	t.Run("valid", func(t *testing.T) {
		var dst req
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bet":50}`))
		require.NoError(t, DecodeJSON(r, &dst))
		assert.Equal(t, int64(50), dst.Bet)
	})

	for name, payload := range map[string]string{
		"garbage":  `{bet:`,
		"missing":  `{}`,
		"negative": `{"bet":-5}`,
		"string":   `{"bet":"50"}`,
	} {
		t.Run(name, func(t *testing.T) {
			var dst req
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			assert.ErrorIs(t, DecodeJSON(r, &dst), common.ErrInvalidAmount)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "abc", seen)
}

func TestRouterRecoversAndHandlesPreflight(t *testing.T) {
	r := NewRouter("https://app.example")
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("oops") })
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) { RespondOK(w, nil) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeInternal, decodeError(t, w).Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

type fakeResolver struct {
	valid map[string]*auth.Identity
}

func (f fakeResolver) Resolve(initData string) (*auth.Identity, error) {
	if id, ok := f.valid[initData]; ok {
		return id, nil
	}
	return nil, common.ErrUnauthenticated
}

func TestInitDataFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Telegram-Init-Data", "a=1")
	assert.Equal(t, "a=1", InitDataFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "tma b=2")
	assert.Equal(t, "b=2", InitDataFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Empty(t, InitDataFromRequest(r))
}

func TestAuthenticateAndRequireAdmin(t *testing.T) {
	resolver := fakeResolver{valid: map[string]*auth.Identity{
		"player": {UserID: 10},
		"admin":  {UserID: 1},
		"demo":   {UserID: 1, IsTrialMode: true},
	}}
	isAdmin := func(id int64) bool { return id == 1 }

	r := NewRouter("*")
	r.Group(func(g chi.Router) {
		g.Use(Authenticate(resolver))
		g.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			require.True(t, ok)
			RespondOK(w, map[string]any{"userId": id.UserID})
		})
		g.With(RequireAdmin(isAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			RespondOK(w, nil)
		})
	})

	call := func(path, initData string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if initData != "" {
			req.Header.Set("X-Telegram-Init-Data", initData)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, call("/me", "forged"))
	assert.Equal(t, http.StatusOK, call("/me", "player"))
	assert.Equal(t, http.StatusForbidden, call("/admin", "player"))
	assert.Equal(t, http.StatusForbidden, call("/admin", "demo"))
	assert.Equal(t, http.StatusOK, call("/admin", "admin"))
}

func TestArgon2RoundTrip(t *testing.T) {
	hash, err := HashArgon2id("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	assert.True(t, VerifyArgon2id("s3cret", hash))
	assert.False(t, VerifyArgon2id("wrong", hash))
	assert.False(t, VerifyArgon2id("s3cret", "not-a-hash"))
}

func TestMetricsHandlerBasicAuth(t *testing.T) {
	hash, err := HashArgon2id("scrape")
	require.NoError(t, err)
	h := MetricsHandler(hash)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.SetBasicAuth("prometheus", "scrape")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	MetricsHandler("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
