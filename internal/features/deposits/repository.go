// Package deposits — repository.go работает с таблицей deposit_intents.
// Зачисление выполняется одной транзакцией: блокировка намерения, CAS статуса, начисление, событие.
package deposits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/db/postgres"
	"serotonyl.ru/stars-casino/internal/events"
	"serotonyl.ru/stars-casino/internal/features/accounts"
)

// Store — хранилище намерений пополнения.
type Store interface {
	CreateIntent(ctx context.Context, in *Intent) error
	GetByToken(ctx context.Context, token string) (*Intent, error)
	// Confirm переводит pending → completed и зачисляет total_credited атомарно.
	// Неизвестный токен — common.ErrDepositNotFound, уже зачисленный — common.ErrDepositSettled.
	Confirm(ctx context.Context, token, externalRef string) (*Intent, *accounts.Account, error)
	CountPending(ctx context.Context) (int64, error)
}

const intentColumns = `id, user_id, stars_amount, bonus_amount, total_credited, correlation_token,
	status, external_ref, created_at, completed_at`

// Repository — Store на PostgreSQL.
type Repository struct {
	db       postgres.DBTX
	tx       *postgres.TxRunner
	accounts *accounts.Repository
}

// NewRepository создаёт репозиторий пополнений.
func NewRepository(db postgres.DBTX, tx *postgres.TxRunner, accountsRepo *accounts.Repository) *Repository {
	return &Repository{db: db, tx: tx, accounts: accountsRepo}
}

func scanIntent(row pgx.Row) (*Intent, error) {
	var in Intent
	err := row.Scan(
		&in.ID, &in.UserID, &in.StarsAmount, &in.BonusAmount, &in.TotalCredited, &in.Token,
		&in.Status, &in.ExternalRef, &in.CreatedAt, &in.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// CreateIntent сохраняет намерение в статусе pending.
func (r *Repository) CreateIntent(ctx context.Context, in *Intent) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO deposit_intents (user_id, stars_amount, bonus_amount, total_credited, correlation_token, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, created_at
	`, in.UserID, in.StarsAmount, in.BonusAmount, in.TotalCredited, in.Token,
	).Scan(&in.ID, &in.Status, &in.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания пополнения: %w", err)
	}
	return nil
}

// GetByToken: если не найден — ошибка с common.ErrDepositNotFound
func (r *Repository) GetByToken(ctx context.Context, token string) (*Intent, error) {
	in, err := scanIntent(r.db.QueryRow(ctx,
		`SELECT `+intentColumns+` FROM deposit_intents WHERE correlation_token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrDepositNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пополнения: %w", err)
	}
	return in, nil
}

// Confirm — см. Store. Порядок блокировок: строка намерения, затем строка счёта.
func (r *Repository) Confirm(ctx context.Context, token, externalRef string) (*Intent, *accounts.Account, error) {
	var (
		intent *Intent
		acc    *accounts.Account
	)

	err := r.tx.Run(ctx, "deposit_confirm", func(tx pgx.Tx) error {
		var err error
		intent, err = scanIntent(tx.QueryRow(ctx,
			`SELECT `+intentColumns+` FROM deposit_intents WHERE correlation_token = $1 FOR UPDATE`, token))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.ErrDepositNotFound
			}
			return fmt.Errorf("ошибка блокировки пополнения: %w", err)
		}
		if intent.Status != StatusPending {
			return common.ErrDepositSettled
		}

		tag, err := tx.Exec(ctx, `
			UPDATE deposit_intents
			SET status = 'completed', external_ref = $2, completed_at = NOW()
			WHERE id = $1 AND status = 'pending'
		`, intent.ID, externalRef)
		if err != nil {
			return fmt.Errorf("ошибка смены статуса пополнения: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.ErrDepositSettled
		}
		intent.Status = StatusCompleted
		intent.ExternalRef = &externalRef

		acc, err = r.accounts.WithTx(tx).Credit(ctx, intent.UserID, intent.TotalCredited)
		if err != nil {
			return err
		}

		return events.Insert(ctx, tx, events.Event{
			AggregateType: events.AggregateDeposit,
			AggregateID:   events.UserAggregateID(intent.UserID),
			EventType:     events.TypeDepositCompleted,
			Payload: completedEvent{
				IntentID:      intent.ID,
				UserID:        intent.UserID,
				StarsAmount:   intent.StarsAmount,
				BonusAmount:   intent.BonusAmount,
				TotalCredited: intent.TotalCredited,
				ExternalRef:   externalRef,
				BalanceAfter:  acc.Balance,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return intent, acc, nil
}

// CountPending — число неоплаченных намерений.
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM deposit_intents WHERE status = 'pending'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пополнений: %w", err)
	}
	return n, nil
}
