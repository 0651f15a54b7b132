// Package admin — service.go: административные операции поверх счетов и сборка отчёта.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
)

// AccountAdmin — операции со счетами, доступные админу (accounts.Service).
type AccountAdmin interface {
	Get(ctx context.Context, userID int64) (*accounts.Account, error)
	SetBalance(ctx context.Context, adminID, userID, balance int64) (*accounts.Account, error)
	SetBanned(ctx context.Context, adminID, userID int64, banned bool) (*accounts.Account, error)
	Stats(ctx context.Context) (*accounts.Stats, error)
}

// PendingCounter — число неоплаченных пополнений (deposits.Service).
type PendingCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

// Service управляет админкой.
type Service struct {
	accounts AccountAdmin
	deposits PendingCounter
	loc      *time.Location
	now      func() time.Time
}

// NewService создаёт сервис админки.
func NewService(accountsAdmin AccountAdmin, deposits PendingCounter, loc *time.Location) *Service {
	return &Service{accounts: accountsAdmin, deposits: deposits, loc: loc, now: time.Now}
}

// Stats — агрегаты по всем счетам.
func (s *Service) Stats(ctx context.Context) (*accounts.Stats, error) {
	return s.accounts.Stats(ctx)
}

// User — счёт игрока для просмотра.
func (s *Service) User(ctx context.Context, userID int64) (*accounts.Account, error) {
	return s.accounts.Get(ctx, userID)
}

// SetBalance выставляет баланс игрока.
func (s *Service) SetBalance(ctx context.Context, adminID, userID, balance int64) (*accounts.Account, error) {
	return s.accounts.SetBalance(ctx, adminID, userID, balance)
}

// Ban блокирует игрока: спины и пополнения отклоняются.
func (s *Service) Ban(ctx context.Context, adminID, userID int64) (*accounts.Account, error) {
	return s.accounts.SetBanned(ctx, adminID, userID, true)
}

// Unban снимает блокировку.
func (s *Service) Unban(ctx context.Context, adminID, userID int64) (*accounts.Account, error) {
	return s.accounts.SetBanned(ctx, adminID, userID, false)
}

// BuildReport собирает сводку. Ошибка подсчёта неоплаченных счетов не фатальна: отчёт уходит без этой строки.
func (s *Service) BuildReport(ctx context.Context) (*Report, error) {
	stats, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Stats: stats, GeneratedAt: s.now()}
	if s.deposits != nil {
		pending, err := s.deposits.PendingCount(ctx)
		if err != nil {
			log.WithError(err).Warn("Не удалось посчитать неоплаченные счета для отчёта")
			pending = -1
		}
		report.PendingDeposit = pending
	}
	return report, nil
}

// FormatReport превращает сводку в текст сообщения для Telegram.
func (s *Service) FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Отчёт казино на %s\n\n", common.FormatDateTime(r.GeneratedAt, s.loc))
	fmt.Fprintf(&b, "👥 %s %s\n", common.FormatNumber(r.Stats.UserCount), common.PluralizePlayers(r.Stats.UserCount))
	fmt.Fprintf(&b, "🎰 Поставлено: %s\n", common.FormatBalance(r.Stats.TotalWagered))
	fmt.Fprintf(&b, "🏆 Выиграно: %s\n", common.FormatBalance(r.Stats.TotalWon))
	fmt.Fprintf(&b, "💳 Пополнено: %s\n", common.FormatBalance(r.Stats.TotalDeposited))
	fmt.Fprintf(&b, "💰 Прибыль: %s", common.FormatStarsAmount(r.Stats.Profit))
	if r.PendingDeposit >= 0 && s.deposits != nil {
		fmt.Fprintf(&b, "\n⏳ Неоплаченных счетов: %d", r.PendingDeposit)
	}
	return b.String()
}

// DailyReportText — готовый текст ежедневного отчёта.
func (s *Service) DailyReportText(ctx context.Context) (string, error) {
	report, err := s.BuildReport(ctx)
	if err != nil {
		return "", err
	}
	return s.FormatReport(report), nil
}
