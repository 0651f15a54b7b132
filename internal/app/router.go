package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/bot"
	"serotonyl.ru/stars-casino/internal/config"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/features/admin"
	"serotonyl.ru/stars-casino/internal/features/casino"
	"serotonyl.ru/stars-casino/internal/features/deposits"
	"serotonyl.ru/stars-casino/internal/httpapi"
)

// Pinger — проверка доступности базы (*pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps — обработчики и зависимости HTTP-слоя.
type RouterDeps struct {
	DB       Pinger
	Verifier httpapi.IdentityResolver
	Bot      *bot.Bot // nil — бот не настроен

	Accounts *accounts.Handler
	Casino   *casino.Handler
	Deposits *deposits.Handler
	Admin    *admin.Handler
}

// NewRouter собирает все маршруты API.
func NewRouter(ctx context.Context, cfg *config.Config, d RouterDeps) http.Handler {
	r := httpapi.NewRouter(cfg.FrontendURL)

	// Публичные маршруты
	r.Get("/api/health", healthHandler(d.DB, d.Bot != nil))
	r.Get("/api/prizes", d.Casino.Prizes)
	r.Get("/api/products", d.Deposits.Products)
	r.Method(http.MethodGet, "/metrics", httpapi.MetricsHandler(cfg.MetricsPasswordHash))

	if d.Bot != nil && cfg.TelegramUpdatesMode == config.UpdatesModeWebhook {
		r.Post("/api/webhook", d.Bot.WebhookHandler(ctx, cfg.TelegramWebhookSecret))
	}

	// Маршруты игрока: только с валидной initData
	r.Group(func(g chi.Router) {
		g.Use(httpapi.Authenticate(d.Verifier))

		g.Get("/api/user", d.Accounts.User)
		g.Get("/api/balance", d.Accounts.Balance)
		g.Post("/api/spin", d.Casino.Spin)
		g.Get("/api/history", d.Casino.History)
		g.Post("/api/create-invoice", d.Deposits.CreateInvoice)

		g.Route("/api/admin", func(a chi.Router) {
			a.Use(httpapi.RequireAdmin(cfg.IsAdmin))

			a.Get("/stats", d.Admin.Stats)
			a.Get("/users/{id}", d.Admin.User)
			a.Post("/users/{id}/balance", d.Admin.SetBalance)
			a.Post("/users/{id}/ban", d.Admin.Ban)
			a.Post("/users/{id}/unban", d.Admin.Unban)
		})
	})

	return r
}

// healthHandler — GET /api/health. База недоступна — 503, остальное информативно.
func healthHandler(db Pinger, botConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, database, code := "ok", "connected", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			log.WithError(err).Warn("Health: база недоступна")
			status, database, code = "degraded", "unavailable", http.StatusServiceUnavailable
		}

		httpapi.RespondJSON(w, code, map[string]any{
			"status":        status,
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"botConfigured": botConfigured,
			"database":      database,
		})
	}
}
