// Package casino — спин по таблице призов с бустом x2.
// prizes.go описывает таблицу призов: она собирается один раз при старте и больше не меняется.
package casino

import (
	"fmt"

	"github.com/shopspring/decimal"

	"serotonyl.ru/stars-casino/internal/common"
)

// Prize — один исход спина.
type Prize struct {
	ID           int             // Позиция в таблице, стабильная
	Glyph        string          // Эмодзи для фронта
	Name         string          // Название
	Multiplier   decimal.Decimal // Множитель ставки, 0 — проигрыш или буст
	IsBoostGrant bool            // Выдаёт буст x2 на следующий спин
	Weight       float64         // Шанс выпадения, не обязательно в сумме 100
}

// Payout — выигрыш без буста: floor(bet * multiplier).
func (p Prize) Payout(bet int64) int64 {
	return decimal.NewFromInt(bet).Mul(p.Multiplier).Floor().IntPart()
}

// IsWin сообщает, платит ли приз что-то сам по себе.
func (p Prize) IsWin() bool {
	return p.Multiplier.IsPositive()
}

func prize(glyph, name, multiplier string, weight float64) Prize {
	return Prize{Glyph: glyph, Name: name, Multiplier: decimal.RequireFromString(multiplier), Weight: weight}
}

func boost(glyph, name string, weight float64) Prize {
	return Prize{Glyph: glyph, Name: name, Multiplier: decimal.Zero, IsBoostGrant: true, Weight: weight}
}

// DefaultPrizes — стандартная таблица из 21 приза. Порядок важен: по нему идёт выбор исхода.
func DefaultPrizes() []Prize {
	return []Prize{
		prize("💨", "Мимо", "0", 30),
		prize("🍒", "Вишня", "0.5", 14),
		prize("🍋", "Лимон", "0.5", 10),
		prize("🍊", "Апельсин", "1", 9),
		prize("🍇", "Виноград", "1", 7),
		prize("🍉", "Арбуз", "1.5", 6),
		prize("🍓", "Клубника", "1.5", 4),
		prize("🍑", "Персик", "2", 3.5),
		prize("🍍", "Ананас", "2", 3),
		prize("🥝", "Киви", "2.5", 2),
		prize("🔔", "Колокол", "3", 1.8),
		prize("🍀", "Клевер", "3", 1.5),
		prize("⭐", "Звезда", "4", 1.2),
		prize("💎", "Алмаз", "5", 0.8),
		prize("👑", "Корона", "7", 0.5),
		prize("7️⃣", "Семёрка", "10", 0.3),
		prize("🎰", "Джекпот", "25", 0.1),
		boost("⚡", "Буст x2", 3),
		boost("🚀", "Ракета", 1),
		prize("💀", "Череп", "0", 0.9),
		prize("🌑", "Затмение", "0", 0.4),
	}
}

// PrizeTable — неизменяемая таблица призов с закэшированной суммой весов.
type PrizeTable struct {
	prizes []Prize
	total  float64
}

// NewPrizeTable проверяет и замораживает таблицу.
// Пустая таблица — ошибка конфигурации, с ней сервис не стартует.
func NewPrizeTable(prizes []Prize) (*PrizeTable, error) {
	if len(prizes) == 0 {
		return nil, common.ErrEmptyPrizeTable
	}

	t := &PrizeTable{prizes: make([]Prize, len(prizes))}
	for i, p := range prizes {
		if p.Weight <= 0 {
			return nil, fmt.Errorf("приз %d (%s): вес должен быть > 0", i, p.Name)
		}
		if p.Multiplier.IsNegative() {
			return nil, fmt.Errorf("приз %d (%s): множитель не может быть отрицательным", i, p.Name)
		}
		p.ID = i
		t.prizes[i] = p
		t.total += p.Weight
	}
	return t, nil
}

// Len — число призов.
func (t *PrizeTable) Len() int {
	return len(t.prizes)
}

// Get возвращает приз по индексу.
func (t *PrizeTable) Get(i int) (Prize, bool) {
	if i < 0 || i >= len(t.prizes) {
		return Prize{}, false
	}
	return t.prizes[i], true
}

// TotalWeight — сумма весов.
func (t *PrizeTable) TotalWeight() float64 {
	return t.total
}

// Probability — нормированная вероятность приза i.
func (t *PrizeTable) Probability(i int) float64 {
	p, ok := t.Get(i)
	if !ok {
		return 0
	}
	return p.Weight / t.total
}

// All возвращает копию таблицы.
func (t *PrizeTable) All() []Prize {
	out := make([]Prize, len(t.prizes))
	copy(out, t.prizes)
	return out
}
