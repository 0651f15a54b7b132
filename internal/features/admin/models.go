// Package admin — административная поверхность: статистика казино, просмотр счёта,
// правка баланса и бан. Доступ только для ADMIN_IDS, проверка в httpapi.RequireAdmin.
package admin

import (
	"time"

	"serotonyl.ru/stars-casino/internal/features/accounts"
)

// Report — сводка для ежедневного отчёта админам.
type Report struct {
	Stats          *accounts.Stats
	PendingDeposit int64 // Неоплаченные счета
	GeneratedAt    time.Time
}

// setBalanceRequest — тело POST /api/admin/users/{id}/balance.
// Указатель, чтобы отличить 0 от отсутствующего поля.
type setBalanceRequest struct {
	Balance *int64 `json:"balance" validate:"required,gte=0"`
}
