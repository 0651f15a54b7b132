// Package filters классифицирует входящие апдейты Telegram.
package filters

import "github.com/mymmrac/telego"

// Виды апдейтов, которые обрабатывает бот. Используются как метка метрики.
const (
	KindPreCheckout       = "pre_checkout"
	KindSuccessfulPayment = "successful_payment"
	KindMessage           = "message"
	KindOther             = "other"
)

// Kind определяет вид апдейта.
func Kind(update telego.Update) string {
	switch {
	case update.PreCheckoutQuery != nil:
		return KindPreCheckout
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		return KindSuccessfulPayment
	case update.Message != nil && update.Message.Text != "":
		return KindMessage
	default:
		return KindOther
	}
}

// IsPrivateWithSender — личный чат с известным отправителем. Команды обрабатываем только там.
func IsPrivateWithSender(message *telego.Message) bool {
	return message != nil && message.From != nil && !message.From.IsBot &&
		message.Chat.Type == telego.ChatTypePrivate
}
