package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// SecretTokenHeader — заголовок, которым Telegram подписывает webhook-запросы.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler принимает апдейты в режиме webhook.
// Telegram всегда получает 200, кроме запросов с чужим секретом: иначе он будет повторять доставку.
// ctx — контекст жизни приложения: обработка продолжается после ответа на запрос.
func (b *Bot) WebhookHandler(ctx context.Context, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			got := r.Header.Get(SecretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.WithField("remote", r.RemoteAddr).Warn("Webhook с неверным секретом")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}

		var update telego.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
			log.WithError(err).Warn("Не удалось разобрать апдейт webhook")
			w.WriteHeader(http.StatusOK)
			return
		}

		b.Dispatch(ctx, update)
		w.WriteHeader(http.StatusOK)
	}
}
