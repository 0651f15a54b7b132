package casino

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

// RandomSource — источник равномерных чисел в [0, 1). *rand.Rand подходит.
type RandomSource interface {
	Float64() float64
}

// Selector выбирает исход спина по весам таблицы.
type Selector struct {
	table *PrizeTable
	mu    sync.Mutex // rand.Rand не потокобезопасен
	src   RandomSource
}

// NewSelector создаёт выборщик. Если src == nil — ChaCha8 с сидом из crypto/rand.
func NewSelector(table *PrizeTable, src RandomSource) *Selector {
	if src == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		src = rand.New(rand.NewChaCha8(seed))
	}
	return &Selector{table: table, src: src}
}

// Select тянет r из [0, total) и идёт по таблице в объявленном порядке,
// вычитая веса, пока остаток не станет <= 0.
// Если из-за погрешности float остаток так и не обнулился — возвращается приз 0.
func (s *Selector) Select() int {
	s.mu.Lock()
	r := s.src.Float64() * s.table.total
	s.mu.Unlock()

	for i, p := range s.table.prizes {
		r -= p.Weight
		if r <= 0 {
			return i
		}
	}
	return 0
}
