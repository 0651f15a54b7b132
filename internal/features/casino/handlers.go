// Package casino — handlers.go обрабатывает HTTP-запросы мини-приложения: спин, история, таблица призов.
package casino

import (
	"net/http"
	"strconv"
	"time"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

// Handler обрабатывает запросы казино.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик казино.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type prizeView struct {
	ID          int     `json:"id"`
	Emoji       string  `json:"emoji"`
	Name        string  `json:"name"`
	Multiplier  float64 `json:"multiplier"`
	IsBoost     bool    `json:"isBoost"`
	Chance      float64 `json:"chance"`      // Вес как в таблице
	Probability float64 `json:"probability"` // Нормированная вероятность, %
}

func (h *Handler) viewPrize(p Prize) prizeView {
	return prizeView{
		ID:          p.ID,
		Emoji:       p.Glyph,
		Name:        p.Name,
		Multiplier:  p.Multiplier.InexactFloat64(),
		IsBoost:     p.IsBoostGrant,
		Chance:      p.Weight,
		Probability: h.service.Table().Probability(p.ID) * 100,
	}
}

type spinRequest struct {
	Bet int64 `json:"bet" validate:"required,gt=0"`
}

// Prizes — GET /api/prizes.
func (h *Handler) Prizes(w http.ResponseWriter, r *http.Request) {
	prizes := h.service.Table().All()
	views := make([]prizeView, 0, len(prizes))
	for _, p := range prizes {
		views = append(views, h.viewPrize(p))
	}
	httpapi.RespondOK(w, map[string]any{
		"prizes": views,
		"stakes": h.service.Stakes(),
	})
}

// Spin — POST /api/spin {bet}.
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		httpapi.RespondError(w, r, common.ErrUnauthenticated)
		return
	}

	var req spinRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	res, err := h.service.Spin(r.Context(), id.UserID, req.Bet)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	httpapi.RespondOK(w, map[string]any{
		"spinId":        res.SpinID,
		"prize":         h.viewPrize(res.Prize),
		"prizeIndex":    res.Prize.ID,
		"bet":           res.Bet,
		"winAmount":     res.WinAmount,
		"boostBefore":   res.BoostBefore,
		"boostAfter":    res.BoostAfter,
		"boostConsumed": res.BoostConsumed,
		"balance":       res.Balance,
		"isTrialMode":   id.IsTrialMode,
	})
}

type historyItem struct {
	ID            int64     `json:"id"`
	Bet           int64     `json:"bet"`
	PrizeID       int       `json:"prizeId"`
	Emoji         string    `json:"emoji"`
	PrizeName     string    `json:"prizeName"`
	WinAmount     int64     `json:"winAmount"`
	BalanceAfter  int64     `json:"balanceAfter"`
	BoostConsumed bool      `json:"boostConsumed"`
	BoostAfter    bool      `json:"boostAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

// History — GET /api/history?limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := httpapi.IdentityFrom(r.Context())
	if !ok {
		httpapi.RespondError(w, r, common.ErrUnauthenticated)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpapi.RespondError(w, r, common.ErrInvalidAmount)
			return
		}
		limit = n
	}

	spins, err := h.service.History(r.Context(), id.UserID, limit)
	if err != nil {
		httpapi.RespondError(w, r, err)
		return
	}

	items := make([]historyItem, 0, len(spins))
	for _, s := range spins {
		item := historyItem{
			ID:            s.ID,
			Bet:           s.BetAmount,
			PrizeID:       s.PrizeID,
			WinAmount:     s.WinAmount,
			BalanceAfter:  s.BalanceAfter,
			BoostConsumed: s.BoostConsumed,
			BoostAfter:    s.BoostAfter,
			CreatedAt:     s.CreatedAt,
		}
		if p, ok := h.service.Table().Get(s.PrizeID); ok {
			item.Emoji = p.Glyph
			item.PrizeName = p.Name
		}
		items = append(items, item)
	}

	httpapi.RespondOK(w, map[string]any{"history": items})
}
