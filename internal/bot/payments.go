package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/deposits"
)

// CreateInvoiceLink выставляет счёт в звёздах. Для XTR provider_token не нужен.
func (b *Bot) CreateInvoiceLink(ctx context.Context, req deposits.InvoiceRequest) (string, error) {
	link, err := b.api.CreateInvoiceLink(ctx, &telego.CreateInvoiceLinkParams{
		Title:       req.Title,
		Description: req.Description,
		Payload:     req.Payload,
		Currency:    deposits.Currency,
		Prices:      []telego.LabeledPrice{{Label: req.Title, Amount: int(req.Amount)}},
	})
	if err != nil {
		return "", fmt.Errorf("createInvoiceLink: %w", err)
	}
	if link == nil || *link == "" {
		return "", errors.New("createInvoiceLink: пустая ссылка")
	}
	return *link, nil
}

// NotifyDeposit благодарит игрока за пополнение.
func (b *Bot) NotifyDeposit(ctx context.Context, userID, credited, bonus, balance int64) error {
	text := fmt.Sprintf("✅ Спасибо! Баланс пополнен на %s", common.FormatStarsAmount(credited))
	if bonus > 0 {
		text += fmt.Sprintf("\n🎁 Из них бонус: %s", common.FormatBalance(bonus))
	}
	text += fmt.Sprintf("\n💰 Баланс: %s", common.FormatBalance(balance))
	return b.sendMessage(ctx, tu.Message(tu.ID(userID), text))
}

// handlePreCheckout отвечает на pre_checkout_query. Telegram ждёт ответ не дольше 10 секунд.
func (b *Bot) handlePreCheckout(ctx context.Context, q *telego.PreCheckoutQuery) {
	params := &telego.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, Ok: true}

	err := b.payments.ValidatePreCheckout(ctx, q.InvoicePayload, int64(q.TotalAmount), q.Currency)
	if err != nil {
		params.Ok = false
		params.ErrorMessage = preCheckoutMessage(err)
		log.WithFields(log.Fields{
			"user_id": q.From.ID,
			"token":   q.InvoicePayload,
			"amount":  q.TotalAmount,
		}).WithError(err).Warn("Pre-checkout отклонён")
	}

	if err := b.api.AnswerPreCheckoutQuery(ctx, params); err != nil {
		log.WithError(err).WithField("query_id", q.ID).Error("Ошибка ответа на pre-checkout")
	}
}

// preCheckoutMessage — текст для игрока при отказе в оплате.
func preCheckoutMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrDepositSettled):
		return "Этот счёт уже оплачен"
	case errors.Is(err, common.ErrDepositNotFound):
		return "Счёт не найден, создайте новый в приложении"
	case errors.Is(err, common.ErrInvalidAmount):
		return "Сумма счёта не совпадает, создайте новый в приложении"
	default:
		return "Оплата временно недоступна, попробуйте позже"
	}
}

// handleSuccessfulPayment передаёт подтверждение оплаты в зачисление.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, message *telego.Message) {
	p := message.SuccessfulPayment

	var payerID int64
	if message.From != nil {
		payerID = message.From.ID
	}

	b.payments.HandlePaymentConfirmation(ctx, deposits.Confirmation{
		Token:       p.InvoicePayload,
		ExternalRef: p.TelegramPaymentChargeID,
		Amount:      int64(p.TotalAmount),
		Currency:    p.Currency,
		PayerID:     payerID,
	})
}

// SendToAdmins рассылает текст всем админам. Возвращает число доставленных сообщений.
func (b *Bot) SendToAdmins(ctx context.Context, text string) int {
	sent := 0
	for _, id := range b.opts.AdminIDs {
		if err := b.sendMessage(ctx, tu.Message(tu.ID(id), text)); err == nil {
			sent++
		}
	}
	return sent
}
