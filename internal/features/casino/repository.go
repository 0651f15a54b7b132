// Package casino — repository.go выполняет спин в одной транзакции и читает историю из spin_records.
package casino

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/stars-casino/internal/db/postgres"
	"serotonyl.ru/stars-casino/internal/events"
	"serotonyl.ru/stars-casino/internal/features/accounts"
)

// DecideFunc получает заблокированный счёт и решает исход спина.
// Ошибка из неё откатывает транзакцию без изменений.
type DecideFunc func(acc *accounts.Account) (*SpinDraft, error)

// Store — хранилище спинов. Settle обязан выполнить блокировку счёта, decide и запись как одно целое.
type Store interface {
	Settle(ctx context.Context, userID int64, decide DecideFunc) (*SpinRecord, *accounts.Account, error)
	ListSpins(ctx context.Context, userID int64, limit int) ([]SpinRecord, error)
}

// Repository — Store на PostgreSQL.
type Repository struct {
	db       postgres.DBTX
	tx       *postgres.TxRunner
	accounts *accounts.Repository
}

// NewRepository создаёт репозиторий казино.
func NewRepository(db postgres.DBTX, tx *postgres.TxRunner, accountsRepo *accounts.Repository) *Repository {
	return &Repository{db: db, tx: tx, accounts: accountsRepo}
}

// Settle: SELECT ... FOR UPDATE на счёт, decide, UPDATE счёта, INSERT в spin_records
// и событие spin.settled — всё в одной транзакции.
// При конфликте транзакция повторяется целиком, decide вызывается заново.
func (r *Repository) Settle(ctx context.Context, userID int64, decide DecideFunc) (*SpinRecord, *accounts.Account, error) {
	var (
		rec *SpinRecord
		acc *accounts.Account
	)

	err := r.tx.Run(ctx, "spin", func(tx pgx.Tx) error {
		accRepo := r.accounts.WithTx(tx)

		locked, err := accRepo.LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		draft, err := decide(locked)
		if err != nil {
			return err
		}

		acc, err = accRepo.ApplySpinOutcome(ctx, userID, accounts.SpinDelta{
			Bet:       draft.Bet,
			Win:       draft.Outcome.WinAmount,
			BoostNext: draft.Outcome.BoostAfter,
		})
		if err != nil {
			return err
		}

		rec = &SpinRecord{
			UserID:        userID,
			BetAmount:     draft.Bet,
			PrizeID:       draft.PrizeID,
			WinAmount:     draft.Outcome.WinAmount,
			BalanceAfter:  acc.Balance,
			BoostConsumed: draft.Outcome.BoostConsumed,
			BoostAfter:    draft.Outcome.BoostAfter,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO spin_records (user_id, bet_amount, prize_id, win_amount, balance_after, boost_consumed, boost_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`, rec.UserID, rec.BetAmount, rec.PrizeID, rec.WinAmount, rec.BalanceAfter, rec.BoostConsumed, rec.BoostAfter,
		).Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка записи спина: %w", err)
		}

		return events.Insert(ctx, tx, events.Event{
			AggregateType: events.AggregateSpin,
			AggregateID:   events.UserAggregateID(userID),
			EventType:     events.TypeSpinSettled,
			Payload: settledEvent{
				SpinID:        rec.ID,
				UserID:        userID,
				Bet:           rec.BetAmount,
				PrizeID:       rec.PrizeID,
				WinAmount:     rec.WinAmount,
				BalanceAfter:  rec.BalanceAfter,
				BoostConsumed: rec.BoostConsumed,
				BoostAfter:    rec.BoostAfter,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, acc, nil
}

// ListSpins возвращает последние спины игрока, новые первыми.
func (r *Repository) ListSpins(ctx context.Context, userID int64, limit int) ([]SpinRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, bet_amount, prize_id, win_amount, balance_after, boost_consumed, boost_after, created_at
		FROM spin_records
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории: %w", err)
	}
	defer rows.Close()

	out := make([]SpinRecord, 0, limit)
	for rows.Next() {
		var s SpinRecord
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.BetAmount, &s.PrizeID, &s.WinAmount,
			&s.BalanceAfter, &s.BoostConsumed, &s.BoostAfter, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
