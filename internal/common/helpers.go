// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"time"
)

// PluralizeStars возвращает правильную форму слова «звезда» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "звезда" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "звезды" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "звёзд" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeStars(1)  → "звезда"
//	PluralizeStars(3)  → "звезды"
//	PluralizeStars(5)  → "звёзд"
//	PluralizeStars(11) → "звёзд"
//	PluralizeStars(21) → "звезда"
func PluralizeStars(n int64) string {
	return pluralize(n, "звезда", "звезды", "звёзд")
}

// PluralizeSpins возвращает правильную форму слова «спин».
func PluralizeSpins(n int64) string {
	return pluralize(n, "спин", "спина", "спинов")
}

// PluralizePlayers возвращает правильную форму слова «игрок».
func PluralizePlayers(n int64) string {
	return pluralize(n, "игрок", "игрока", "игроков")
}

func pluralize(n int64, one, few, many string) string {
	// Берём абсолютное значение для отрицательных чисел
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}

	return many
}

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(1500) → "1 500 звёзд"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizeStars(balance))
}

// LoadLocation загружает часовой пояс, при ошибке откатывается на UTC+3.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" в указанном поясе.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}
