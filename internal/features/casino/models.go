package casino

import "time"

// SpinRecord — запись одного спина в spin_records. Не изменяется после вставки.
type SpinRecord struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	BetAmount     int64     `db:"bet_amount"`
	PrizeID       int       `db:"prize_id"`
	WinAmount     int64     `db:"win_amount"`
	BalanceAfter  int64     `db:"balance_after"` // Баланс сразу после этого спина
	BoostConsumed bool      `db:"boost_consumed"`
	BoostAfter    bool      `db:"boost_after"`
	CreatedAt     time.Time `db:"created_at"`
}

// SpinDraft — что решено внутри транзакции спина, до записи.
type SpinDraft struct {
	Bet     int64
	PrizeID int
	Outcome Outcome
}

// SpinResult — ответ на спин.
type SpinResult struct {
	SpinID        int64
	Prize         Prize
	Bet           int64
	WinAmount     int64
	BoostBefore   bool
	BoostAfter    bool
	BoostConsumed bool
	Balance       int64
}

// settledEvent — полезная нагрузка события spin.settled.
type settledEvent struct {
	SpinID        int64 `json:"spin_id"`
	UserID        int64 `json:"user_id"`
	Bet           int64 `json:"bet"`
	PrizeID       int   `json:"prize_id"`
	WinAmount     int64 `json:"win_amount"`
	BalanceAfter  int64 `json:"balance_after"`
	BoostConsumed bool  `json:"boost_consumed"`
	BoostAfter    bool  `json:"boost_after"`
}
