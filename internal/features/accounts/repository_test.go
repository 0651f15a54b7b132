package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/db/postgres/pgtest"
)

func TestRepositoryPostgres(t *testing.T) {
	pool := pgtest.New(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	acc, created, err := repo.Upsert(ctx, 10, Profile{Username: "a"}, 500)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(500), acc.Balance)

	acc, created, err = repo.Upsert(ctx, 10, Profile{Username: "b"}, 999)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(500), acc.Balance, "повторный вход не меняет баланс")
	assert.Equal(t, "b", acc.Username)

	acc, err = repo.ApplySpinOutcome(ctx, 10, SpinDelta{Bet: 50, Win: 100, BoostNext: true})
	require.NoError(t, err)
	assert.Equal(t, int64(550), acc.Balance)
	assert.Equal(t, int64(50), acc.TotalWagered)
	assert.Equal(t, int64(100), acc.TotalWon)
	assert.Equal(t, int64(1), acc.TotalSpins)
	assert.True(t, acc.HasBoost)

	acc, err = repo.Credit(ctx, 10, 275)
	require.NoError(t, err)
	assert.Equal(t, int64(825), acc.Balance)
	assert.Equal(t, int64(275), acc.TotalDeposited)

	_, err = repo.SetBalance(ctx, 10, -5)
	assert.Error(t, err, "CHECK balance >= 0")

	_, err = repo.SetBanned(ctx, 11, true)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	_, err = repo.Get(ctx, 11)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	st, err := repo.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{UserCount: 1, TotalWagered: 50, TotalWon: 100, TotalDeposited: 275, Profit: -50}, *st)
}
