// Package accounts — service.go содержит бизнес-логику счетов:
// регистрацию при первом входе, чтение баланса, админские правки и статистику.
package accounts

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// Store — операции со счетами, которые нужны сервису. Реализуется *Repository.
type Store interface {
	Upsert(ctx context.Context, userID int64, p Profile, initialBalance int64) (*Account, bool, error)
	Get(ctx context.Context, userID int64) (*Account, error)
	SetBalance(ctx context.Context, userID int64, balance int64) (*Account, error)
	SetBanned(ctx context.Context, userID int64, banned bool) (*Account, error)
	AggregateStats(ctx context.Context) (*Stats, error)
}

// Service управляет счетами игроков.
type Service struct {
	store          Store
	initialBalance int64 // Стартовый баланс нового игрока
}

// NewService создаёт сервис счетов.
func NewService(store Store, initialBalance int64) *Service {
	return &Service{store: store, initialBalance: initialBalance}
}

// GetOrCreate возвращает счёт игрока, создавая его при первом обращении.
// Профиль при каждом вызове обновляется данными из Telegram.
func (s *Service) GetOrCreate(ctx context.Context, userID int64, p Profile) (*Account, error) {
	acc, created, err := s.store.Upsert(ctx, userID, p, s.initialBalance)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.RecordAccountCreated()
		log.WithFields(log.Fields{
			"user_id":  userID,
			"username": p.Username,
			"balance":  acc.Balance,
		}).Info("Новый игрок зарегистрирован")
	}
	return acc, nil
}

// Get возвращает счёт. Если игрока нет — ошибка с common.ErrUserNotFound.
func (s *Service) Get(ctx context.Context, userID int64) (*Account, error) {
	return s.store.Get(ctx, userID)
}

// SetBalance — админская правка баланса. Отрицательное значение отклоняется.
func (s *Service) SetBalance(ctx context.Context, adminID, userID, balance int64) (*Account, error) {
	if balance < 0 {
		return nil, fmt.Errorf("баланс %d: %w", balance, common.ErrInvalidAmount)
	}

	acc, err := s.store.SetBalance(ctx, userID, balance)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"balance":  balance,
	}).Warn("Админ изменил баланс игрока")
	return acc, nil
}

// SetBanned — бан или разбан игрока.
func (s *Service) SetBanned(ctx context.Context, adminID, userID int64, banned bool) (*Account, error) {
	acc, err := s.store.SetBanned(ctx, userID, banned)
	if err != nil {
		return nil, err
	}

	action := "разбанен"
	if banned {
		action = "забанен"
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
	}).Warnf("Игрок %s", action)
	return acc, nil
}

// Stats возвращает агрегаты по всем счетам.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.AggregateStats(ctx)
}
