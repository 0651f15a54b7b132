// Package postgres — queries.go содержит общие утилиты для выполнения запросов:
// интерфейс DBTX и запуск транзакций с повтором при конфликтах.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/metrics"
)

// DBTX покрывает и pgxpool.Pool, и pgx.Tx, чтобы репозитории работали с обоими.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner — то, что умеет открывать транзакции (pgxpool.Pool).
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Коды SQLSTATE, после которых транзакцию безопасно повторить целиком.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsRetryable сообщает, что ошибка — временный конфликт, а не сбой.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// TxRunner выполняет функцию в транзакции и повторяет её при конфликтах.
// Бизнес-ошибки из fn не повторяются: транзакция откатывается, ошибка возвращается как есть.
type TxRunner struct {
	db          TxBeginner
	maxAttempts int
	backoff     time.Duration
}

// NewTxRunner создаёт раннер. maxAttempts < 1 трактуется как 1.
func NewTxRunner(db TxBeginner, maxAttempts int) *TxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TxRunner{db: db, maxAttempts: maxAttempts, backoff: 10 * time.Millisecond}
}

// Run открывает транзакцию, вызывает fn и коммитит.
//
// Параметры:
//   - ctx: контекст
//   - op: имя операции для логов и метрик ("spin", "deposit_confirm", ...)
//   - fn: тело транзакции; если вернёт ошибку — откат
func (r *TxRunner) Run(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}

		metrics.RecordTxRetry(op)
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Warn("Конфликт транзакции, повторяем")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("транзакция %s не прошла за %d попыток: %w", op, r.maxAttempts, err)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
