package deposits

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/auth"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

func newTestRouter(h *Handler, userID int64) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/products", h.Products)
	r.Group(func(g chi.Router) {
		g.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := httpapi.WithIdentity(r.Context(), &auth.Identity{UserID: userID})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		g.Post("/api/create-invoice", h.CreateInvoice)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestHandlerProducts(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())
	code, body := do(t, newTestRouter(NewHandler(svc), 1), http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusOK, code)
	products := body["products"].([]any)
	require.Len(t, products, 3)
	second := products[1].(map[string]any)
	assert.Equal(t, float64(250), second["amount"])
	assert.Equal(t, float64(275), second["total"])
}

func TestHandlerCreateInvoice(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1}, accounts.Account{UserID: 2, IsBanned: true})
	svc, _, _ := newTestService(store)
	h := NewHandler(svc)

	code, body := do(t, newTestRouter(h, 1), http.MethodPost, "/api/create-invoice", `{"amount":250}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["invoiceLink"])
	assert.Equal(t, float64(25), body["bonus"])

	code, body = do(t, newTestRouter(h, 1), http.MethodPost, "/api/create-invoice", `{"amount":333}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, httpapi.CodeValidation, body["error"])

	code, _ = do(t, newTestRouter(h, 1), http.MethodPost, "/api/create-invoice", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, newTestRouter(h, 2), http.MethodPost, "/api/create-invoice", `{"amount":50}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, httpapi.CodeAccountBanned, body["error"])
}
