// Package middleware содержит промежуточные обработчики для логирования
// и восстановления после паники.
package middleware

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// LogUpdate логирует входящий апдейт.
// Записывает: update_id, вид, user_id, chat_id, текст (первые 50 символов).
func LogUpdate(update telego.Update, kind string) {
	fields := log.Fields{
		"update_id": update.UpdateID,
		"kind":      kind,
	}

	if m := update.Message; m != nil {
		fields["chat_id"] = m.Chat.ID
		if m.From != nil {
			fields["user_id"] = m.From.ID
			fields["username"] = m.From.Username
		}
		text := []rune(m.Text)
		if len(text) > 50 {
			text = append(text[:50], []rune("...")...)
		}
		fields["text"] = string(text)
	}
	if q := update.PreCheckoutQuery; q != nil {
		fields["user_id"] = q.From.ID
		fields["amount"] = q.TotalAmount
	}

	log.WithFields(fields).Debug("Входящий апдейт")
}
