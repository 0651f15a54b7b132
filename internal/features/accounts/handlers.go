// Package accounts — handlers.go: профиль и баланс текущего игрока.
package accounts

import (
	"net/http"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

// Handler обрабатывает запросы к счёту игрока.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// User — GET /api/user: проверка initData, регистрация при первом входе, профиль и счёт.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		httpapi.RespondError(w, r, common.ErrUnauthenticated)
		return
	}

	acc, err := h.service.GetOrCreate(r.Context(), id.UserID, Profile(id.Profile))
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	httpapi.RespondOK(w, map[string]any{
		"user":        acc,
		"isTrialMode": id.IsTrialMode,
	})
}

// Balance — GET /api/balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		httpapi.RespondError(w, r, common.ErrUnauthenticated)
		return
	}

	acc, err := h.service.Get(r.Context(), id.UserID)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	httpapi.RespondOK(w, map[string]any{
		"balance":  acc.Balance,
		"hasBoost": acc.HasBoost,
	})
}
