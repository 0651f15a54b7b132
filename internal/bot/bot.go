// Package bot — Telegram-канал казино на telego: приём апдейтов (long polling или webhook),
// оплата звёздами, уведомления игрокам и отчёты админам.
package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/bot/filters"
	"serotonyl.ru/stars-casino/internal/bot/middleware"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/features/deposits"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// API — методы Bot API, которые мы вызываем. Реализуется *telego.Bot.
type API interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *telego.AnswerPreCheckoutQueryParams) error
	CreateInvoiceLink(ctx context.Context, params *telego.CreateInvoiceLinkParams) (*string, error)
}

// UpdateSource — источник апдейтов для long polling. Реализуется *telego.Bot.
type UpdateSource interface {
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

// Accounts — регистрация и чтение счёта (accounts.Service).
type Accounts interface {
	GetOrCreate(ctx context.Context, userID int64, p accounts.Profile) (*accounts.Account, error)
}

// Payments — платёжная часть (deposits.Service).
type Payments interface {
	ValidatePreCheckout(ctx context.Context, token string, amount int64, currency string) error
	HandlePaymentConfirmation(ctx context.Context, c deposits.Confirmation)
}

// Options — настройки бота из конфигурации.
type Options struct {
	WebAppURL      string
	AdminIDs       []int64
	MaxInflight    int
	UpdateTimeout  int // секунды long polling
	AllowedUpdates []string
}

// Bot — главная структура бота.
type Bot struct {
	api      API
	updates  UpdateSource
	accounts Accounts
	payments Payments
	opts     Options

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота. api и updates в проде — один и тот же *telego.Bot.
func New(api API, updates UpdateSource, accountsSvc Accounts, payments Payments, opts Options) *Bot {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 64
	}
	if len(opts.AllowedUpdates) == 0 {
		opts.AllowedUpdates = []string{"message", "pre_checkout_query"}
	}

	return &Bot{
		api:      api,
		updates:  updates,
		accounts: accountsSvc,
		payments: payments,
		opts:     opts,
		parser:   NewCommandParser(),
		inflight: make(chan struct{}, opts.MaxInflight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.updates.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.opts.UpdateTimeout,
		AllowedUpdates: b.opts.AllowedUpdates,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": b.opts.MaxInflight,
		"timeout_sec":  b.opts.UpdateTimeout,
	}).Info("Бот запущен и ожидает апдейты...")

	// telego закрывает канал после отмены ctx
	for update := range updates {
		b.Dispatch(ctx, update)
	}

	log.Info("Канал апдейтов закрыт, бот остановлен")
	return nil
}

// Dispatch ставит апдейт в обработку с учётом лимита параллелизма.
// Блокируется, пока не освободится слот или не отменят ctx.
func (b *Bot) Dispatch(ctx context.Context, update telego.Update) {
	select {
	case b.inflight <- struct{}{}:
	case <-ctx.Done():
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.inflight }()
		b.handleUpdate(ctx, update)
	}()
}

// Wait ждёт завершения уже запущенных обработчиков.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	kind := filters.Kind(update)
	metrics.RecordBotUpdate(kind)
	middleware.LogUpdate(update, kind)

	switch kind {
	case filters.KindPreCheckout:
		b.handlePreCheckout(ctx, update.PreCheckoutQuery)

	case filters.KindSuccessfulPayment:
		b.handleSuccessfulPayment(ctx, update.Message)

	case filters.KindMessage:
		message := update.Message
		if !filters.IsPrivateWithSender(message) {
			return
		}
		cmd, args, isCommand := b.parser.ParseCommand(message.Text)
		if isCommand {
			b.routeCommand(ctx, message, cmd, args)
		}
	}
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы. "/start@StarsBot" даёт "start".
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
