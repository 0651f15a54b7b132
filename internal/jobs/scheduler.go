// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: выгрузка outbox в Kafka, метрика неоплаченных счетов
// и ежедневный отчёт админам.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/metrics"
)

// Расписания задач.
const (
	SpecOutboxFlush  = "@every 2s"
	SpecPendingGauge = "@every 1m"
	SpecDailyReport  = "0 9 * * *"
)

// OutboxFlusher — выгрузка событий (events.Outbox).
type OutboxFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// PendingCounter — число неоплаченных счетов (deposits.Service).
type PendingCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

// Reporter собирает текст ежедневного отчёта (admin.Service).
type Reporter interface {
	DailyReportText(ctx context.Context) (string, error)
}

// ReportSender рассылает отчёт админам (bot.Bot). Возвращает число доставленных сообщений.
type ReportSender interface {
	SendToAdmins(ctx context.Context, text string) int
}

// Deps — зависимости задач. Nil-поля отключают соответствующие задачи.
type Deps struct {
	Outbox   OutboxFlusher
	Deposits PendingCounter
	Reporter Reporter
	Sender   ReportSender
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron *cron.Cron
	deps Deps
}

// NewScheduler создаёт планировщик в заданном часовом поясе.
// Задача не запускается повторно, пока не закончилась предыдущая.
func NewScheduler(loc *time.Location, deps Deps) *Scheduler {
	logger := cron.PrintfLogger(log.WithField("component", "cron"))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{cron: c, deps: deps}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.deps.Outbox != nil {
		if _, err := s.cron.AddFunc(SpecOutboxFlush, func() { s.FlushOutbox(ctx) }); err != nil {
			return err
		}
	}
	if s.deps.Deposits != nil {
		if _, err := s.cron.AddFunc(SpecPendingGauge, func() { s.RefreshPending(ctx) }); err != nil {
			return err
		}
	}
	if s.deps.Reporter != nil && s.deps.Sender != nil {
		if _, err := s.cron.AddFunc(SpecDailyReport, func() { s.SendDailyReport(ctx) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("Планировщик задач запущен")
	return nil
}

// FlushOutbox выгружает накопившиеся события.
func (s *Scheduler) FlushOutbox(ctx context.Context) {
	n, err := s.deps.Outbox.Flush(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка выгрузки outbox")
		return
	}
	if n > 0 {
		log.WithField("events", n).Debug("[CRON] События outbox опубликованы")
	}
}

// RefreshPending обновляет метрику неоплаченных счетов.
func (s *Scheduler) RefreshPending(ctx context.Context) {
	n, err := s.deps.Deposits.PendingCount(ctx)
	if err != nil {
		log.WithError(err).Warn("[CRON] Не удалось посчитать неоплаченные счета")
		return
	}
	metrics.SetDepositsPending(n)
}

// SendDailyReport собирает и рассылает отчёт.
func (s *Scheduler) SendDailyReport(ctx context.Context) {
	log.Info("[CRON] Ежедневный отчёт")
	text, err := s.deps.Reporter.DailyReportText(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сборки отчёта")
		return
	}
	sent := s.deps.Sender.SendToAdmins(ctx, text)
	log.WithField("sent", sent).Info("[CRON] Отчёт разослан")
}

// Stop останавливает планировщик и ждёт текущие задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
