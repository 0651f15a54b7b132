// Package admin — handlers.go: HTTP-эндпоинты /api/admin/*.
package admin

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

// Handler обрабатывает админ-запросы.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик админки.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Stats — GET /api/admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}
	httpapi.RespondOK(w, map[string]any{"stats": stats})
}

// User — GET /api/admin/users/{id}.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}
	acc, err := h.service.User(r.Context(), userID)
	h.respondAccount(w, r, acc, err)
}

// SetBalance — POST /api/admin/users/{id}/balance {balance}.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	adminID, userID, err := h.ids(r)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	var req setBalanceRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	acc, err := h.service.SetBalance(r.Context(), adminID, userID, *req.Balance)
	h.respondAccount(w, r, acc, err)
}

// Ban — POST /api/admin/users/{id}/ban.
func (h *Handler) Ban(w http.ResponseWriter, r *http.Request) {
	adminID, userID, err := h.ids(r)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}
	acc, err := h.service.Ban(r.Context(), adminID, userID)
	h.respondAccount(w, r, acc, err)
}

// Unban — POST /api/admin/users/{id}/unban.
func (h *Handler) Unban(w http.ResponseWriter, r *http.Request) {
	adminID, userID, err := h.ids(r)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}
	acc, err := h.service.Unban(r.Context(), adminID, userID)
	h.respondAccount(w, r, acc, err)
}

func (h *Handler) respondAccount(w http.ResponseWriter, r *http.Request, acc *accounts.Account, err error) {
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}
	httpapi.RespondOK(w, map[string]any{"user": acc})
}

// ids возвращает id админа из контекста и id игрока из пути.
func (h *Handler) ids(r *http.Request) (adminID, userID int64, err error) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		return 0, 0, common.ErrUnauthenticated
	}
	userID, err = userIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	return id.UserID, userID, nil
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id игрока %q: %w", raw, common.ErrInvalidAmount)
	}
	return id, nil
}
