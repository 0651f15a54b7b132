// Package deposits — пополнение баланса звёздами Telegram.
// Намерение создаётся при выставлении счёта и зачисляется ровно один раз по подтверждению оплаты.
package deposits

import "time"

// Currency — валюта Telegram Stars.
const Currency = "XTR"

// Статусы намерения пополнения.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Intent — намерение пополнения в deposit_intents.
type Intent struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	StarsAmount   int64      `db:"stars_amount"`      // Сколько платит игрок
	BonusAmount   int64      `db:"bonus_amount"`      // Бонус по тарифу
	TotalCredited int64      `db:"total_credited"`    // stars + bonus
	Token         string     `db:"correlation_token"` // Payload счёта, ключ поиска
	Status        string     `db:"status"`
	ExternalRef   *string    `db:"external_ref"` // telegram_payment_charge_id
	CreatedAt     time.Time  `db:"created_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

// Invoice — выставленный счёт для фронта.
type Invoice struct {
	Link   string
	Token  string
	Amount int64
	Bonus  int64
	Total  int64
}

// InvoiceRequest — что нужно платёжному каналу, чтобы выставить счёт.
type InvoiceRequest struct {
	Title       string
	Description string
	Payload     string
	Amount      int64
}

// Confirmation — подтверждение оплаты из Telegram (successful_payment).
type Confirmation struct {
	Token       string // invoice_payload
	ExternalRef string // telegram_payment_charge_id
	Amount      int64  // total_amount
	Currency    string
	PayerID     int64
}

// completedEvent — полезная нагрузка события deposit.completed.
type completedEvent struct {
	IntentID      int64  `json:"intent_id"`
	UserID        int64  `json:"user_id"`
	StarsAmount   int64  `json:"stars_amount"`
	BonusAmount   int64  `json:"bonus_amount"`
	TotalCredited int64  `json:"total_credited"`
	ExternalRef   string `json:"external_ref"`
	BalanceAfter  int64  `json:"balance_after"`
}
