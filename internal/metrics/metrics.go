// Package metrics — Prometheus-метрики сервиса.
// Все метрики регистрируются в дефолтном реестре через promauto,
// снаружи доступны только Record*-хелперы и /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stars_casino_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_spins_total",
			Help: "Settled spins by prize",
		},
		[]string{"prize"},
	)

	SpinRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_spin_rejections_total",
			Help: "Spins rejected before settlement",
		},
		[]string{"reason"},
	)

	StarsWageredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_casino_stars_wagered_total",
			Help: "Stars wagered on settled spins",
		},
	)

	StarsWonTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_casino_stars_won_total",
			Help: "Stars paid out on settled spins",
		},
	)

	BoostEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_boost_events_total",
			Help: "Boost grants and consumptions",
		},
		[]string{"event"},
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stars_casino_settlement_duration_seconds",
			Help:    "Spin settlement duration including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_deposits_total",
			Help: "Deposit lifecycle events",
		},
		[]string{"status"},
	)

	StarsDepositedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_casino_stars_credited_total",
			Help: "Stars credited by completed deposits, bonus included",
		},
	)

	PaymentConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_payment_confirmations_total",
			Help: "Payment confirmations by outcome",
		},
		[]string{"result"},
	)

	DepositsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stars_casino_deposits_pending",
			Help: "Deposit intents waiting for payment",
		},
	)

	AccountsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_casino_accounts_created_total",
			Help: "Accounts created on first contact",
		},
	)

	TxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_tx_retries_total",
			Help: "Transactions retried after a transient conflict",
		},
		[]string{"op"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_outbox_published_total",
			Help: "Outbox events handed to Kafka",
		},
		[]string{"result"},
	)

	BotUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_casino_bot_updates_total",
			Help: "Telegram updates by kind",
		},
		[]string{"kind"},
	)
)

// RecordHTTPRequest учитывает один HTTP-запрос.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSpin учитывает рассчитанный спин.
func RecordSpin(prize string, bet, win int64, boostGranted, boostConsumed bool, started time.Time) {
	SpinsTotal.WithLabelValues(prize).Inc()
	StarsWageredTotal.Add(float64(bet))
	StarsWonTotal.Add(float64(win))
	if boostGranted {
		BoostEventsTotal.WithLabelValues("granted").Inc()
	}
	if boostConsumed {
		BoostEventsTotal.WithLabelValues("consumed").Inc()
	}
	SettlementDuration.Observe(time.Since(started).Seconds())
}

// RecordSpinRejected учитывает отклонённый спин.
func RecordSpinRejected(reason string) {
	SpinRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordDeposit учитывает событие жизненного цикла пополнения.
// Для completed дополнительно растёт счётчик зачисленных звёзд.
func RecordDeposit(status string, credited int64) {
	DepositsTotal.WithLabelValues(status).Inc()
	if credited > 0 {
		StarsDepositedTotal.Add(float64(credited))
	}
}

// RecordPaymentConfirmation учитывает исход обработки successful_payment.
func RecordPaymentConfirmation(result string) {
	PaymentConfirmationsTotal.WithLabelValues(result).Inc()
}

// SetDepositsPending выставляет число ожидающих оплаты пополнений.
func SetDepositsPending(n int64) {
	DepositsPending.Set(float64(n))
}

// RecordAccountCreated учитывает нового игрока.
func RecordAccountCreated() {
	AccountsCreatedTotal.Inc()
}

// RecordTxRetry учитывает повтор транзакции.
func RecordTxRetry(op string) {
	TxRetriesTotal.WithLabelValues(op).Inc()
}

// RecordOutboxPublish учитывает попытку публикации события.
func RecordOutboxPublish(ok bool) {
	if ok {
		OutboxPublishedTotal.WithLabelValues("ok").Inc()
		return
	}
	OutboxPublishedTotal.WithLabelValues("error").Inc()
}

// RecordBotUpdate учитывает входящий апдейт Telegram.
func RecordBotUpdate(kind string) {
	BotUpdatesTotal.WithLabelValues(kind).Inc()
}
