// Package accounts — счёт игрока: баланс, счётчики, флаги буста и бана.
// models.go описывает структуры данных для работы с таблицей accounts.
package accounts

import "time"

// Profile — данные пользователя из Telegram. Обновляются при каждом входе.
type Profile struct {
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	LanguageCode string `json:"languageCode"`
	IsPremium    bool   `json:"isPremium"`
}

// Account представляет счёт игрока в базе данных.
// Создаётся лениво при первом входе, никогда не удаляется.
type Account struct {
	UserID         int64     `db:"user_id" json:"userId"` // Telegram user ID
	Profile                  // Имя, @username и т.д.
	Balance        int64     `db:"balance" json:"balance"`                // Текущий баланс, всегда >= 0
	TotalDeposited int64     `db:"total_deposited" json:"totalDeposited"` // Сколько зачислено пополнениями (с бонусами)
	TotalWagered   int64     `db:"total_wagered" json:"totalWagered"`     // Сумма всех ставок
	TotalWon       int64     `db:"total_won" json:"totalWon"`             // Сумма всех выигрышей
	TotalSpins     int64     `db:"total_spins" json:"totalSpins"`         // Число спинов
	HasBoost       bool      `db:"has_boost" json:"hasBoost"`             // Есть неизрасходованный буст x2
	IsBanned       bool      `db:"is_banned" json:"isBanned"`             // Флаг бана
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	LastActive     time.Time `db:"last_active" json:"lastActive"` // Обновляется любой мутацией
}

// DisplayName возвращает отображаемое имя игрока.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (a *Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	name := a.FirstName
	if a.LastName != "" {
		name += " " + a.LastName
	}
	if name == "" {
		return "игрок"
	}
	return name
}

// SpinDelta — изменение счёта по итогам одного спина.
type SpinDelta struct {
	Bet       int64 // Списывается
	Win       int64 // Начисляется
	BoostNext bool  // Новое значение has_boost
}

// Stats — агрегаты по всем счетам для админки.
type Stats struct {
	UserCount      int64 `json:"userCount"`
	TotalWagered   int64 `json:"totalWagered"`
	TotalWon       int64 `json:"totalWon"`
	TotalDeposited int64 `json:"totalDeposited"`
	Profit         int64 `json:"profit"` // wagered - won
}
