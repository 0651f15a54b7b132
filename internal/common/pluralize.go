// Package common — pluralize.go содержит форматирование сумм для сообщений бота.
// Основная логика плюрализации реализована в helpers.go.
package common

import "fmt"

// FormatStarsAmount создаёт строку вида "+100 звёзд" или "-50 звёзд".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatStarsAmount(100)  → "+100 звёзд"
//	FormatStarsAmount(-50)  → "-50 звёзд"
//	FormatStarsAmount(1)    → "+1 звезда"
func FormatStarsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%s %s", FormatNumber(amount), PluralizeStars(amount))
	}
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizeStars(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
