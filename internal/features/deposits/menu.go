package deposits

import (
	"serotonyl.ru/stars-casino/internal/config"
)

// Product — строка меню пополнения.
type Product struct {
	Amount       int64 `json:"amount"`
	BonusPercent int64 `json:"bonusPercent"`
	Bonus        int64 `json:"bonus"`
	Total        int64 `json:"total"`
}

// Menu — допустимые суммы пополнения с бонусами.
type Menu struct {
	products []Product
	byAmount map[int64]Product
}

// Bonus = floor(amount * percent / 100).
func Bonus(amount, percent int64) int64 {
	return amount * percent / 100
}

// NewMenu строит меню из тарифов конфигурации.
func NewMenu(tiers []config.DepositTier) *Menu {
	m := &Menu{byAmount: make(map[int64]Product, len(tiers))}
	for _, t := range tiers {
		bonus := Bonus(t.Amount, t.BonusPercent)
		p := Product{Amount: t.Amount, BonusPercent: t.BonusPercent, Bonus: bonus, Total: t.Amount + bonus}
		m.products = append(m.products, p)
		m.byAmount[t.Amount] = p
	}
	return m
}

// Lookup ищет тариф по сумме.
func (m *Menu) Lookup(amount int64) (Product, bool) {
	p, ok := m.byAmount[amount]
	return p, ok
}

// Products возвращает меню в порядке возрастания суммы.
func (m *Menu) Products() []Product {
	out := make([]Product, len(m.products))
	copy(out, m.products)
	return out
}
