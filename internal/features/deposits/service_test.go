package deposits

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/stars-casino/internal/cache/redis"
	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/config"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/metrics"
)

// memStore — Store в памяти поверх общей карты счетов.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*accounts.Account
	intents  map[string]*Intent
	nextID   int64
}

func newMemStore(accs ...accounts.Account) *memStore {
	s := &memStore{accounts: make(map[int64]*accounts.Account), intents: make(map[string]*Intent)}
	for i := range accs {
		a := accs[i]
		s.accounts[a.UserID] = &a
	}
	return s
}

func (s *memStore) CreateIntent(_ context.Context, in *Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	in.ID = s.nextID
	in.Status = StatusPending
	in.CreatedAt = time.Now()
	cp := *in
	s.intents[in.Token] = &cp
	return nil
}

func (s *memStore) GetByToken(_ context.Context, token string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[token]
	if !ok {
		return nil, common.ErrDepositNotFound
	}
	cp := *in
	return &cp, nil
}

func (s *memStore) Confirm(_ context.Context, token, externalRef string) (*Intent, *accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[token]
	if !ok {
		return nil, nil, common.ErrDepositNotFound
	}
	if in.Status != StatusPending {
		return nil, nil, common.ErrDepositSettled
	}
	acc, ok := s.accounts[in.UserID]
	if !ok {
		return nil, nil, common.ErrUserNotFound
	}
	in.Status = StatusCompleted
	in.ExternalRef = &externalRef
	acc.Balance += in.TotalCredited
	acc.TotalDeposited += in.TotalCredited

	intent, out := *in, *acc
	return &intent, &out, nil
}

func (s *memStore) CountPending(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, in := range s.intents {
		if in.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Get(_ context.Context, userID int64) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	out := *acc
	return &out, nil
}

type fakeInvoices struct {
	mu   sync.Mutex
	reqs []InvoiceRequest
	err  error
}

func (f *fakeInvoices) CreateInvoiceLink(_ context.Context, req InvoiceRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.reqs = append(f.reqs, req)
	return "https://t.me/$invoice-" + req.Payload, nil
}

type notice struct {
	userID, credited, bonus, balance int64
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (f *fakeNotifier) NotifyDeposit(_ context.Context, userID, credited, bonus, balance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{userID, credited, bonus, balance})
	return f.err
}

// busyLocker всегда занят.
type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), bool) { return func() {}, false }

var testTiers = []config.DepositTier{{Amount: 50, BonusPercent: 0}, {Amount: 250, BonusPercent: 10}, {Amount: 1000, BonusPercent: 20}}

func newTestService(store *memStore) (*Service, *fakeInvoices, *fakeNotifier) {
	svc := NewService(store, store, NewMenu(testTiers), redis.NewLocker(nil, time.Second))
	inv, notif := &fakeInvoices{}, &fakeNotifier{}
	svc.SetPaymentChannel(inv, notif)
	return svc, inv, notif
}

func TestMenu(t *testing.T) {
	m := NewMenu(testTiers)

	p, ok := m.Lookup(250)
	require.True(t, ok)
	assert.Equal(t, Product{Amount: 250, BonusPercent: 10, Bonus: 25, Total: 275}, p)

	_, ok = m.Lookup(251)
	assert.False(t, ok)

	assert.Equal(t, int64(0), Bonus(99, 0))
	assert.Equal(t, int64(4), Bonus(99, 5), "бонус округляется вниз")

	products := m.Products()
	require.Len(t, products, 3)
	products[0].Total = 0
	assert.Equal(t, int64(50), m.Products()[0].Total, "меню не меняется снаружи")
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "dep_"))
	assert.Len(t, a, len("dep_")+32)
	assert.LessOrEqual(t, len(a), 128)
	assert.NotEqual(t, a, b)
}

func TestInitiateDeposit(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 100})
	svc, inv, _ := newTestService(store)
	ctx := context.Background()

	invoice, err := svc.InitiateDeposit(ctx, 1, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), invoice.Amount)
	assert.Equal(t, int64(25), invoice.Bonus)
	assert.Equal(t, int64(275), invoice.Total)
	assert.Contains(t, invoice.Link, invoice.Token)

	require.Len(t, inv.reqs, 1)
	assert.Equal(t, invoice.Token, inv.reqs[0].Payload)
	assert.Equal(t, int64(250), inv.reqs[0].Amount)

	intent, err := store.GetByToken(ctx, invoice.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, intent.Status)
	assert.Equal(t, int64(275), intent.TotalCredited)

	acc, _ := store.Get(ctx, 1)
	assert.Equal(t, int64(100), acc.Balance, "выставление счёта не меняет баланс")

	n, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInitiateDepositRejections(t *testing.T) {
	store := newMemStore(
		accounts.Account{UserID: 1},
		accounts.Account{UserID: 2, IsBanned: true},
	)
	svc, inv, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.InitiateDeposit(ctx, 1, 77)
	assert.ErrorIs(t, err, common.ErrInvalidDepositTier)

	_, err = svc.InitiateDeposit(ctx, 2, 50)
	assert.ErrorIs(t, err, common.ErrAccountBanned)

	_, err = svc.InitiateDeposit(ctx, 3, 50)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	inv.err = errors.New("telegram down")
	_, err = svc.InitiateDeposit(ctx, 1, 50)
	assert.Error(t, err)

	unconfigured := NewService(store, store, NewMenu(testTiers), redis.NewLocker(nil, time.Second))
	_, err = unconfigured.InitiateDeposit(ctx, 1, 50)
	assert.ErrorIs(t, err, common.ErrPaymentsUnavailable)
}

func TestPaymentConfirmationCreditsOnce(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1, Balance: 100})
	svc, _, notif := newTestService(store)
	ctx := context.Background()

	invoice, err := svc.InitiateDeposit(ctx, 1, 250)
	require.NoError(t, err)

	metrics.PaymentConfirmationsTotal.Reset()
	c := Confirmation{Token: invoice.Token, ExternalRef: "charge-1", Amount: 250, Currency: Currency, PayerID: 1}
	svc.HandlePaymentConfirmation(ctx, c)
	svc.HandlePaymentConfirmation(ctx, c)

	acc, _ := store.Get(ctx, 1)
	assert.Equal(t, int64(375), acc.Balance)
	assert.Equal(t, int64(275), acc.TotalDeposited)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PaymentConfirmationsTotal.WithLabelValues("credited")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PaymentConfirmationsTotal.WithLabelValues("duplicate")))

	require.Len(t, notif.notices, 1)
	assert.Equal(t, notice{userID: 1, credited: 275, bonus: 25, balance: 375}, notif.notices[0])

	_, _, err = svc.ConfirmDeposit(ctx, invoice.Token, "charge-1")
	assert.ErrorIs(t, err, common.ErrDepositSettled)
	assert.ErrorIs(t, err, common.ErrDepositNotFound)
}

func TestPaymentConfirmationConcurrentDuplicates(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1})
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	invoice, err := svc.InitiateDeposit(ctx, 1, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.HandlePaymentConfirmation(ctx, Confirmation{Token: invoice.Token, ExternalRef: "c", Amount: 1000, Currency: Currency})
		}()
	}
	wg.Wait()

	acc, _ := store.Get(ctx, 1)
	assert.Equal(t, int64(1200), acc.Balance)
}

func TestPaymentConfirmationIsolatedIntents(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1}, accounts.Account{UserID: 2})
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	a, err := svc.InitiateDeposit(ctx, 1, 50)
	require.NoError(t, err)
	b, err := svc.InitiateDeposit(ctx, 1, 250)
	require.NoError(t, err)
	c, err := svc.InitiateDeposit(ctx, 2, 1000)
	require.NoError(t, err)

	svc.HandlePaymentConfirmation(ctx, Confirmation{Token: b.Token, ExternalRef: "b", Amount: 250, Currency: Currency})

	acc1, _ := store.Get(ctx, 1)
	acc2, _ := store.Get(ctx, 2)
	assert.Equal(t, int64(275), acc1.Balance)
	assert.Equal(t, int64(0), acc2.Balance)

	for _, tok := range []string{a.Token, c.Token} {
		in, err := store.GetByToken(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, in.Status)
	}
}

func TestPaymentConfirmationUnknownAndMismatch(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1})
	svc, _, notif := newTestService(store)
	ctx := context.Background()

	metrics.PaymentConfirmationsTotal.Reset()
	svc.HandlePaymentConfirmation(ctx, Confirmation{Token: "dep_nope", Amount: 50, Currency: Currency})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PaymentConfirmationsTotal.WithLabelValues("unknown")))

	invoice, err := svc.InitiateDeposit(ctx, 1, 50)
	require.NoError(t, err)

	// Несовпадение суммы логируется, зачисление идёт по намерению
	notif.err = errors.New("blocked by user")
	svc.HandlePaymentConfirmation(ctx, Confirmation{Token: invoice.Token, ExternalRef: "x", Amount: 49, Currency: "USD"})

	acc, _ := store.Get(ctx, 1)
	assert.Equal(t, int64(50), acc.Balance, "ошибка уведомления не откатывает зачисление")
}

func TestPaymentConfirmationLockBusy(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1})
	svc := NewService(store, store, NewMenu(testTiers), busyLocker{})
	svc.SetPaymentChannel(&fakeInvoices{}, nil)
	ctx := context.Background()

	invoice, err := svc.InitiateDeposit(ctx, 1, 50)
	require.NoError(t, err)

	metrics.PaymentConfirmationsTotal.Reset()
	svc.HandlePaymentConfirmation(ctx, Confirmation{Token: invoice.Token, Amount: 50, Currency: Currency})

	acc, _ := store.Get(ctx, 1)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PaymentConfirmationsTotal.WithLabelValues("in_flight")))
}

func TestValidatePreCheckout(t *testing.T) {
	store := newMemStore(accounts.Account{UserID: 1})
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	invoice, err := svc.InitiateDeposit(ctx, 1, 250)
	require.NoError(t, err)

	assert.NoError(t, svc.ValidatePreCheckout(ctx, invoice.Token, 250, Currency))
	assert.ErrorIs(t, svc.ValidatePreCheckout(ctx, invoice.Token, 275, Currency), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.ValidatePreCheckout(ctx, invoice.Token, 250, "USD"), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.ValidatePreCheckout(ctx, "dep_unknown", 250, Currency), common.ErrDepositNotFound)

	svc.HandlePaymentConfirmation(ctx, Confirmation{Token: invoice.Token, Amount: 250, Currency: Currency})
	assert.ErrorIs(t, svc.ValidatePreCheckout(ctx, invoice.Token, 250, Currency), common.ErrDepositSettled)
}
