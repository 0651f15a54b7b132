// Package casino — service.go проводит спин от проверки ставки до ответа.
package casino

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// Drawer выбирает индекс приза. *Selector — боевая реализация.
type Drawer interface {
	Select() int
}

// Options — настройки сервиса казино.
type Options struct {
	Stakes         []int64 // Допустимые ставки
	HistoryDefault int     // Размер истории по умолчанию
	HistoryMax     int     // Максимум истории за один запрос
}

// Service управляет спинами.
type Service struct {
	store  Store
	table  *PrizeTable
	drawer Drawer
	opts   Options
}

// NewService создаёт сервис казино.
func NewService(store Store, table *PrizeTable, drawer Drawer, opts Options) *Service {
	return &Service{store: store, table: table, drawer: drawer, opts: opts}
}

// Table возвращает таблицу призов.
func (s *Service) Table() *PrizeTable {
	return s.table
}

// Stakes возвращает допустимые ставки.
func (s *Service) Stakes() []int64 {
	return slices.Clone(s.opts.Stakes)
}

// Spin выполняет один спин.
//
// Проверки идут по порядку: счёт существует, не забанен, ставка из списка, хватает баланса.
// Любая неудача — ошибка без изменений в базе.
func (s *Service) Spin(ctx context.Context, userID, bet int64) (*SpinResult, error) {
	started := time.Now()
	var (
		prize   Prize
		outcome Outcome
	)

	rec, acc, err := s.store.Settle(ctx, userID, func(acc *accounts.Account) (*SpinDraft, error) {
		if acc.IsBanned {
			return nil, common.ErrAccountBanned
		}
		if !slices.Contains(s.opts.Stakes, bet) {
			return nil, fmt.Errorf("ставка %d: %w", bet, common.ErrInvalidStake)
		}
		if acc.Balance < bet {
			return nil, fmt.Errorf("нужно %d, есть %d: %w", bet, acc.Balance, common.ErrInsufficientBalance)
		}

		var ok bool
		prize, ok = s.table.Get(s.drawer.Select())
		if !ok {
			prize, _ = s.table.Get(0)
		}

		outcome = Settle(acc.Balance, acc.HasBoost, bet, prize)
		return &SpinDraft{Bet: bet, PrizeID: prize.ID, Outcome: outcome}, nil
	})
	if err != nil {
		metrics.RecordSpinRejected(rejectReason(err))
		return nil, err
	}

	metrics.RecordSpin(prize.Name, rec.BetAmount, rec.WinAmount, prize.IsBoostGrant, rec.BoostConsumed, started)

	fields := log.Fields{
		"user_id": userID,
		"spin_id": rec.ID,
		"bet":     bet,
		"prize":   prize.Name,
		"win":     rec.WinAmount,
		"balance": acc.Balance,
	}
	if prize.Multiplier.IntPart() >= 10 {
		log.WithFields(fields).Info("Крупный выигрыш в казино")
	} else {
		log.WithFields(fields).Debug("Спин рассчитан")
	}

	return &SpinResult{
		SpinID:        rec.ID,
		Prize:         prize,
		Bet:           bet,
		WinAmount:     rec.WinAmount,
		BoostBefore:   outcome.BoostBefore,
		BoostAfter:    rec.BoostAfter,
		BoostConsumed: rec.BoostConsumed,
		Balance:       acc.Balance,
	}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, common.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, common.ErrAccountBanned):
		return "banned"
	case errors.Is(err, common.ErrInvalidStake):
		return "invalid_stake"
	case errors.Is(err, common.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "error"
	}
}

// History возвращает последние спины. limit <= 0 — значение по умолчанию, сверху ограничен HistoryMax.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]SpinRecord, error) {
	if limit <= 0 {
		limit = s.opts.HistoryDefault
	}
	if limit > s.opts.HistoryMax {
		limit = s.opts.HistoryMax
	}
	return s.store.ListSpins(ctx, userID, limit)
}
