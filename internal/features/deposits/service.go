// Package deposits — service.go: выставление счёта, проверка перед оплатой и зачисление по подтверждению.
package deposits

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/cache/redis"
	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// InvoiceProvider выставляет счёт в Telegram Stars и возвращает ссылку на него.
type InvoiceProvider interface {
	CreateInvoiceLink(ctx context.Context, req InvoiceRequest) (string, error)
}

// Notifier сообщает игроку о зачислении. Ошибка не влияет на уже проведённое зачисление.
type Notifier interface {
	NotifyDeposit(ctx context.Context, userID, credited, bonus, balance int64) error
}

// AccountReader — чтение счёта игрока (accounts.Service).
type AccountReader interface {
	Get(ctx context.Context, userID int64) (*accounts.Account, error)
}

// Locker — блокировка обработки одного подтверждения (redis.Locker).
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool)
}

// Service управляет пополнениями.
type Service struct {
	store    Store
	accounts AccountReader
	menu     *Menu
	locker   Locker
	invoices InvoiceProvider // nil — бот не настроен
	notifier Notifier        // nil — уведомления не отправляются
}

// NewService создаёт сервис пополнений.
func NewService(store Store, accountsReader AccountReader, menu *Menu, locker Locker) *Service {
	return &Service{store: store, accounts: accountsReader, menu: menu, locker: locker}
}

// SetPaymentChannel подключает бота: он выставляет счета и уведомляет игроков.
func (s *Service) SetPaymentChannel(invoices InvoiceProvider, notifier Notifier) {
	s.invoices = invoices
	s.notifier = notifier
}

// Products возвращает меню пополнения.
func (s *Service) Products() []Product {
	return s.menu.Products()
}

// InitiateDeposit создаёт намерение и выставляет счёт. Баланс не меняется.
func (s *Service) InitiateDeposit(ctx context.Context, userID, amount int64) (*Invoice, error) {
	product, ok := s.menu.Lookup(amount)
	if !ok {
		return nil, fmt.Errorf("сумма %d: %w", amount, common.ErrInvalidDepositTier)
	}
	if s.invoices == nil {
		return nil, common.ErrPaymentsUnavailable
	}

	acc, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.IsBanned {
		return nil, common.ErrAccountBanned
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		UserID:        userID,
		StarsAmount:   product.Amount,
		BonusAmount:   product.Bonus,
		TotalCredited: product.Total,
		Token:         token,
	}
	if err := s.store.CreateIntent(ctx, intent); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Пополнение баланса на %s", common.FormatBalance(product.Amount))
	if product.Bonus > 0 {
		description += fmt.Sprintf(" + бонус %s (%d%%)", common.FormatBalance(product.Bonus), product.BonusPercent)
	}

	link, err := s.invoices.CreateInvoiceLink(ctx, InvoiceRequest{
		Title:       fmt.Sprintf("%d ⭐ в казино", product.Amount),
		Description: description,
		Payload:     token,
		Amount:      product.Amount,
	})
	if err != nil {
		// Намерение остаётся pending и никогда не будет оплачено — это безопасно
		return nil, fmt.Errorf("ошибка выставления счёта: %w", err)
	}

	metrics.RecordDeposit("initiated", 0)
	log.WithFields(log.Fields{
		"user_id":   userID,
		"intent_id": intent.ID,
		"amount":    product.Amount,
		"bonus":     product.Bonus,
	}).Info("Счёт на пополнение выставлен")

	return &Invoice{Link: link, Token: token, Amount: product.Amount, Bonus: product.Bonus, Total: product.Total}, nil
}

// ConfirmDeposit зачисляет пополнение по токену ровно один раз.
func (s *Service) ConfirmDeposit(ctx context.Context, token, externalRef string) (*Intent, *accounts.Account, error) {
	return s.store.Confirm(ctx, token, externalRef)
}

// ValidatePreCheckout проверяет счёт перед оплатой: намерение есть, ещё не оплачено, сумма и валюта совпадают.
func (s *Service) ValidatePreCheckout(ctx context.Context, token string, amount int64, currency string) error {
	intent, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if intent.Status != StatusPending {
		return common.ErrDepositSettled
	}
	if currency != Currency || amount != intent.StarsAmount {
		return fmt.Errorf("ожидалось %d %s, пришло %d %s: %w",
			intent.StarsAmount, Currency, amount, currency, common.ErrInvalidAmount)
	}
	return nil
}

// HandlePaymentConfirmation обрабатывает successful_payment. Ошибок не возвращает:
// платёжный канал всегда получает подтверждение, чтобы Telegram не слал повторы бесконечно.
func (s *Service) HandlePaymentConfirmation(ctx context.Context, c Confirmation) {
	entry := log.WithFields(log.Fields{
		"token":        c.Token,
		"external_ref": c.ExternalRef,
		"payer_id":     c.PayerID,
		"amount":       c.Amount,
	})

	release, ok := s.locker.Acquire(ctx, redis.DepositConfirmLockKey(c.Token))
	if !ok {
		metrics.RecordPaymentConfirmation("in_flight")
		entry.Info("Подтверждение уже обрабатывается, повтор пропущен")
		return
	}
	defer release()

	intent, acc, err := s.ConfirmDeposit(ctx, c.Token, c.ExternalRef)
	switch {
	case errors.Is(err, common.ErrDepositSettled):
		metrics.RecordPaymentConfirmation("duplicate")
		entry.Info("Повторное подтверждение уже зачисленного пополнения")
		return
	case errors.Is(err, common.ErrDepositNotFound):
		metrics.RecordPaymentConfirmation("unknown")
		entry.Warn("Подтверждение оплаты с неизвестным токеном")
		return
	case err != nil:
		metrics.RecordPaymentConfirmation("error")
		entry.WithError(err).Error("Ошибка зачисления пополнения")
		return
	}

	if c.Currency != Currency || c.Amount != intent.StarsAmount {
		entry.WithFields(log.Fields{
			"currency": c.Currency,
			"expected": intent.StarsAmount,
		}).Warn("Сумма или валюта оплаты не совпадает с намерением, зачислено по намерению")
	}

	metrics.RecordPaymentConfirmation("credited")
	metrics.RecordDeposit(StatusCompleted, intent.TotalCredited)
	entry.WithFields(log.Fields{
		"user_id":  intent.UserID,
		"credited": intent.TotalCredited,
		"balance":  acc.Balance,
	}).Info("Пополнение зачислено")

	if s.notifier != nil {
		if err := s.notifier.NotifyDeposit(ctx, intent.UserID, intent.TotalCredited, intent.BonusAmount, acc.Balance); err != nil {
			entry.WithError(err).Warn("Не удалось уведомить игрока о зачислении")
		}
	}
}

// PendingCount — число неоплаченных намерений для метрики.
func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}
