// Package common — errors.go определяет ошибки, которые используются во всех модулях.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отдавать клиенту понятный код ответа.
package common

import (
	"errors"
	"fmt"
)

// Ошибки авторизации
var (
	// ErrUnauthenticated — нет initData или подпись не сошлась
	ErrUnauthenticated = errors.New("неверные или отсутствующие данные Telegram initData")
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)

// Ошибки валидации
var (
	// ErrInvalidStake — ставка не из списка допустимых
	ErrInvalidStake = errors.New("недопустимый размер ставки")
	// ErrInvalidDepositTier — такой суммы нет в меню пополнения
	ErrInvalidDepositTier = errors.New("недопустимая сумма пополнения")
	// ErrInvalidAmount — некорректная сумма (отрицательная или мусор)
	ErrInvalidAmount = errors.New("некорректная сумма")
)

// Ошибки счёта
var (
	// ErrUserNotFound — игрок не найден в базе
	ErrUserNotFound = errors.New("игрок не найден")
	// ErrAccountBanned — игрок заблокирован
	ErrAccountBanned = errors.New("аккаунт заблокирован")
	// ErrInsufficientBalance — недостаточно звёзд на счёте
	ErrInsufficientBalance = errors.New("недостаточно звёзд на счёте")
)

// Ошибки казино
var (
	// ErrEmptyPrizeTable — таблица призов пуста, запускаться нельзя
	ErrEmptyPrizeTable = errors.New("таблица призов пуста")
)

// Ошибки пополнений
var (
	// ErrDepositNotFound — намерение пополнения не найдено
	ErrDepositNotFound = errors.New("пополнение не найдено")
	// ErrDepositSettled — пополнение уже зачислено. errors.Is(err, ErrDepositNotFound) == true
	ErrDepositSettled = fmt.Errorf("пополнение уже зачислено: %w", ErrDepositNotFound)
	// ErrPaymentsUnavailable — бот не настроен, счета выставлять нечем
	ErrPaymentsUnavailable = errors.New("оплата временно недоступна")
)

// IsClientError сообщает, что ошибка вызвана запросом клиента, а не сбоем хранилища.
// Такие ошибки не ретраятся и не пишутся в лог как Error.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrUnauthenticated, ErrNotAdmin,
		ErrInvalidStake, ErrInvalidDepositTier, ErrInvalidAmount,
		ErrUserNotFound, ErrAccountBanned, ErrInsufficientBalance,
		ErrDepositNotFound, ErrPaymentsUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
