package casino

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
)

// memStore — Store в памяти. Один мьютекс сериализует спины, как FOR UPDATE в Postgres.
type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]*accounts.Account
	spins     []SpinRecord
	lastLimit int
}

func newMemStore(accs ...accounts.Account) *memStore {
	s := &memStore{accounts: make(map[int64]*accounts.Account)}
	for i := range accs {
		a := accs[i]
		s.accounts[a.UserID] = &a
	}
	return s
}

func (s *memStore) Settle(_ context.Context, userID int64, decide DecideFunc) (*SpinRecord, *accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, nil, common.ErrUserNotFound
	}
	locked := *acc

	draft, err := decide(&locked)
	if err != nil {
		return nil, nil, err
	}

	acc.Balance += draft.Outcome.WinAmount - draft.Bet
	acc.TotalWagered += draft.Bet
	acc.TotalWon += draft.Outcome.WinAmount
	acc.TotalSpins++
	acc.HasBoost = draft.Outcome.BoostAfter

	rec := SpinRecord{
		ID:            int64(len(s.spins) + 1),
		UserID:        userID,
		BetAmount:     draft.Bet,
		PrizeID:       draft.PrizeID,
		WinAmount:     draft.Outcome.WinAmount,
		BalanceAfter:  acc.Balance,
		BoostConsumed: draft.Outcome.BoostConsumed,
		BoostAfter:    draft.Outcome.BoostAfter,
	}
	s.spins = append(s.spins, rec)

	out := *acc
	return &rec, &out, nil
}

func (s *memStore) ListSpins(_ context.Context, userID int64, limit int) ([]SpinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit

	var out []SpinRecord
	for i := len(s.spins) - 1; i >= 0 && len(out) < limit; i-- {
		if s.spins[i].UserID == userID {
			out = append(out, s.spins[i])
		}
	}
	return out, nil
}

func (s *memStore) account(userID int64) accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[userID]
}

// scriptedDrawer отдаёт индексы по очереди, последний повторяется.
type scriptedDrawer struct {
	mu  sync.Mutex
	seq []int
}

func (d *scriptedDrawer) Select() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.seq[0]
	if len(d.seq) > 1 {
		d.seq = d.seq[1:]
	}
	return idx
}

// Индексы в DefaultPrizes
const (
	idxMiss  = 0
	idxMelon = 5
	idxPeach = 7
	idxBoost = 17
)

func newTestService(t *testing.T, store Store, seq ...int) *Service {
	t.Helper()
	table, err := NewPrizeTable(DefaultPrizes())
	require.NoError(t, err)
	return NewService(store, table, &scriptedDrawer{seq: seq}, Options{
		Stakes:         []int64{10, 25, 50, 100},
		HistoryDefault: 20,
		HistoryMax:     50,
	})
}

func TestSpinConcreteScenario(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 100})
	svc := newTestService(t, store, idxPeach)

	res, err := svc.Spin(context.Background(), 1, 50)
	require.NoError(t, err)

	assert.Equal(t, int64(100), res.WinAmount)
	assert.Equal(t, int64(150), res.Balance)
	assert.Equal(t, "Персик", res.Prize.Name)

	acc := store.account(1)
	assert.Equal(t, int64(150), acc.Balance)
	assert.Equal(t, int64(50), acc.TotalWagered)
	assert.Equal(t, int64(100), acc.TotalWon)
	assert.Equal(t, int64(1), acc.TotalSpins)
	assert.Equal(t, acc.Balance, store.spins[0].BalanceAfter)
}

func TestSpinBoostClearedByLoss(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 100, HasBoost: true})
	svc := newTestService(t, store, idxMiss)

	res, err := svc.Spin(context.Background(), 1, 25)
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.WinAmount)
	assert.Equal(t, int64(75), res.Balance)
	assert.True(t, res.BoostBefore)
	assert.True(t, res.BoostConsumed)
	assert.False(t, res.BoostAfter)
	assert.False(t, store.account(1).HasBoost)
}

func TestSpinBoostSingleShot(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 1000})
	svc := newTestService(t, store, idxBoost, idxBoost, idxMelon, idxMelon)
	ctx := context.Background()

	r1, err := svc.Spin(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, r1.BoostAfter)

	r2, err := svc.Spin(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, r2.BoostAfter)
	assert.False(t, r2.BoostConsumed)

	r3, err := svc.Spin(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(300), r3.WinAmount)
	assert.True(t, r3.BoostConsumed)
	assert.False(t, r3.BoostAfter)

	r4, err := svc.Spin(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(150), r4.WinAmount)
	assert.False(t, r4.BoostConsumed)

	assert.Equal(t, int64(1000-400+450), store.account(1).Balance)
}

func TestSpinPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(
		accounts.Account{UserID: 1, Balance: 5, IsBanned: true},
		accounts.Account{UserID: 2, Balance: 5},
	)
	svc := newTestService(t, store, idxPeach)

	_, err := svc.Spin(ctx, 99, 10)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	// Бан проверяется раньше ставки и баланса
	_, err = svc.Spin(ctx, 1, 7)
	assert.ErrorIs(t, err, common.ErrAccountBanned)

	// Ставка проверяется раньше баланса
	_, err = svc.Spin(ctx, 2, 7)
	assert.ErrorIs(t, err, common.ErrInvalidStake)

	_, err = svc.Spin(ctx, 2, 10)
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)

	// Ничего не изменилось
	assert.Equal(t, int64(5), store.account(2).Balance)
	assert.Equal(t, int64(0), store.account(2).TotalSpins)
	assert.Empty(t, store.spins)
}

func TestSpinExactBalanceAllowed(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 10})
	svc := newTestService(t, store, idxMiss)

	res, err := svc.Spin(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Balance)
}

func TestSpinConcurrentNoOverdraw(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 100})
	svc := newTestService(t, store, idxMiss)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, poor int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Spin(context.Background(), 1, 10)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, common.ErrInsufficientBalance) {
				poor++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 40, poor)
	assert.Equal(t, int64(0), store.account(1).Balance)
}

func TestHistoryLimits(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 1000})
	svc := newTestService(t, store, idxMiss)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Spin(ctx, 1, 10)
		require.NoError(t, err)
	}

	spins, err := svc.History(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, store.lastLimit)
	require.Len(t, spins, 3)
	assert.Greater(t, spins[0].ID, spins[2].ID, "новые первыми")

	_, err = svc.History(ctx, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastLimit)

	_, err = svc.History(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.lastLimit)
}
