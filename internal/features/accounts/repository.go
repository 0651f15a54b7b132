// Package accounts — repository.go отвечает за все операции с таблицей accounts.
// Каждый метод выполняет один SQL-запрос. Repository работает и на пуле, и внутри транзакции (WithTx).
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/db/postgres"
)

const accountColumns = `user_id, username, first_name, last_name, language_code, is_premium,
	balance, total_deposited, total_wagered, total_won, total_spins,
	has_boost, is_banned, created_at, last_active`

type Repository struct {
	db postgres.DBTX
}

func NewRepository(db postgres.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx возвращает репозиторий, который выполняет запросы в транзакции tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

func scanAccount(row pgx.Row, extra ...any) (*Account, error) {
	var a Account
	dest := []any{
		&a.UserID, &a.Username, &a.FirstName, &a.LastName, &a.LanguageCode, &a.IsPremium,
		&a.Balance, &a.TotalDeposited, &a.TotalWagered, &a.TotalWon, &a.TotalSpins,
		&a.HasBoost, &a.IsBanned, &a.CreatedAt, &a.LastActive,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

// notFound переводит pgx.ErrNoRows в common.ErrUserNotFound.
func notFound(err error, userID int64, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s (user_id=%d): %w", action, userID, common.ErrUserNotFound)
	}
	return fmt.Errorf("%s (user_id=%d): %w", action, userID, err)
}

// Upsert создаёт счёт с начальным балансом или обновляет профиль существующего.
// На конфликте по user_id баланс, счётчики и флаги не трогаются.
// created == true, если строка вставлена этим запросом (xmax = 0).
func (r *Repository) Upsert(ctx context.Context, userID int64, p Profile, initialBalance int64) (*Account, bool, error) {
	query := `
		INSERT INTO accounts (user_id, username, first_name, last_name, language_code, is_premium, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    language_code = EXCLUDED.language_code,
		    is_premium = EXCLUDED.is_premium,
		    last_active = NOW()
		RETURNING ` + accountColumns + `, (xmax = 0) AS created
	`
	var created bool
	a, err := scanAccount(r.db.QueryRow(ctx, query,
		userID, p.Username, p.FirstName, p.LastName, p.LanguageCode, p.IsPremium, initialBalance,
	), &created)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка создания/обновления счёта (user_id=%d): %w", userID, err)
	}
	return a, created, nil
}

// Get: если не найден — ошибка с common.ErrUserNotFound
func (r *Repository) Get(ctx context.Context, userID int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, userID, "ошибка чтения счёта")
	}
	return a, nil
}

// LockForUpdate читает счёт с блокировкой строки до конца транзакции.
// Вызывать только через WithTx.
func (r *Repository) LockForUpdate(ctx context.Context, userID int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, userID, "ошибка блокировки счёта")
	}
	return a, nil
}

// ApplySpinOutcome применяет итог спина одной командой UPDATE.
// Арифметика на стороне БД, возвращается строка после изменения.
func (r *Repository) ApplySpinOutcome(ctx context.Context, userID int64, d SpinDelta) (*Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $2 + $3,
		    total_wagered = total_wagered + $2,
		    total_won = total_won + $3,
		    total_spins = total_spins + 1,
		    has_boost = $4,
		    last_active = NOW()
		WHERE user_id = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, d.Bet, d.Win, d.BoostNext))
	if err != nil {
		return nil, notFound(err, userID, "ошибка применения спина")
	}
	return a, nil
}

// Credit зачисляет пополнение: растут balance и total_deposited.
func (r *Repository) Credit(ctx context.Context, userID int64, amount int64) (*Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
		    total_deposited = total_deposited + $2,
		    last_active = NOW()
		WHERE user_id = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, amount))
	if err != nil {
		return nil, notFound(err, userID, "ошибка зачисления")
	}
	return a, nil
}

// SetBalance — безусловная запись баланса админом.
func (r *Repository) SetBalance(ctx context.Context, userID int64, balance int64) (*Account, error) {
	query := `
		UPDATE accounts SET balance = $2, last_active = NOW()
		WHERE user_id = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, balance))
	if err != nil {
		return nil, notFound(err, userID, "ошибка установки баланса")
	}
	return a, nil
}

// SetBanned — бан/разбан.
func (r *Repository) SetBanned(ctx context.Context, userID int64, banned bool) (*Account, error) {
	query := `
		UPDATE accounts SET is_banned = $2, last_active = NOW()
		WHERE user_id = $1
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, query, userID, banned))
	if err != nil {
		return nil, notFound(err, userID, "ошибка изменения бана")
	}
	return a, nil
}

// AggregateStats считает агрегаты по всем счетам одним запросом.
func (r *Repository) AggregateStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_wagered), 0)::BIGINT,
		       COALESCE(SUM(total_won), 0)::BIGINT,
		       COALESCE(SUM(total_deposited), 0)::BIGINT
		FROM accounts
	`
	var s Stats
	if err := r.db.QueryRow(ctx, query).Scan(&s.UserCount, &s.TotalWagered, &s.TotalWon, &s.TotalDeposited); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта статистики: %w", err)
	}
	s.Profit = s.TotalWagered - s.TotalWon
	return &s, nil
}
