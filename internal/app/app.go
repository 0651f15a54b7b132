// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, Redis, Kafka, репозитории, сервисы, бота,
// HTTP-роутер и планировщик.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/auth"
	"serotonyl.ru/stars-casino/internal/bot"
	"serotonyl.ru/stars-casino/internal/cache/redis"
	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/config"
	"serotonyl.ru/stars-casino/internal/db/postgres"
	"serotonyl.ru/stars-casino/internal/events"
	"serotonyl.ru/stars-casino/internal/features/accounts"
	"serotonyl.ru/stars-casino/internal/features/admin"
	"serotonyl.ru/stars-casino/internal/features/casino"
	"serotonyl.ru/stars-casino/internal/features/deposits"
	"serotonyl.ru/stars-casino/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Redis     *goredis.Client // nil, если REDIS_ADDR не задан
	Kafka     *events.KafkaProducer
	Bot       *bot.Bot // nil, если TELEGRAM_BOT_TOKEN не задан
	Scheduler *jobs.Scheduler
	Router    http.Handler
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
// ctx живёт всё время работы приложения: на нём работают webhook-обработчики.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	txRunner := postgres.NewTxRunner(pool, cfg.DBTxMaxAttempts)

	// === 2. Redis (необязателен) ===
	rdb, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	var locker *redis.Locker
	if rdb != nil {
		locker = redis.NewLocker(rdb, cfg.ConfirmLockTTL)
	} else {
		log.Info("Redis не настроен, блокировки подтверждений только через базу")
		locker = redis.NewLocker(nil, cfg.ConfirmLockTTL)
	}

	// === 3. Kafka и outbox ===
	producer := events.NewKafkaProducer(cfg.KafkaBrokers)
	outbox := events.NewOutbox(pool, producer, cfg.KafkaTopicPrefix, cfg.OutboxBatchSize)

	// === 4. Репозитории ===
	accountsRepo := accounts.NewRepository(pool)
	casinoRepo := casino.NewRepository(pool, txRunner, accountsRepo)
	depositsRepo := deposits.NewRepository(pool, txRunner, accountsRepo)

	// === 5. Сервисы ===
	table, err := casino.NewPrizeTable(casino.DefaultPrizes())
	if err != nil {
		pool.Close()
		return nil, err
	}
	accountsService := accounts.NewService(accountsRepo, cfg.CasinoInitialBalance)
	casinoService := casino.NewService(casinoRepo, table, casino.NewSelector(table, nil), casino.Options{
		Stakes:         cfg.CasinoStakes,
		HistoryDefault: cfg.CasinoHistoryDefault,
		HistoryMax:     cfg.CasinoHistoryMax,
	})
	depositsService := deposits.NewService(depositsRepo, accountsService, deposits.NewMenu(cfg.DepositTiers), locker)
	loc := common.LoadLocation(cfg.AppTimezone)
	adminService := admin.NewService(accountsService, depositsService, loc)

	// === 6. Telegram (необязателен) ===
	var b *bot.Bot
	if cfg.BotConfigured() {
		tg, err := telego.NewBot(cfg.TelegramBotToken, telego.WithLogger(log.WithField("component", "telego")))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		b = bot.New(tg, tg, accountsService, depositsService, bot.Options{
			WebAppURL:     cfg.WebAppURL,
			AdminIDs:      cfg.AdminIDs,
			MaxInflight:   cfg.BotMaxInflight,
			UpdateTimeout: cfg.BotUpdateTimeoutSeconds,
		})
		// Бот выставляет счета и уведомляет игроков
		depositsService.SetPaymentChannel(b, b)
		log.WithField("mode", cfg.TelegramUpdatesMode).Info("Telegram-бот настроен")
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN не задан: оплата и уведомления отключены")
	}

	// === 7. Авторизация и HTTP ===
	verifier := auth.NewVerifier(auth.Options{
		BotToken:   cfg.TelegramBotToken,
		MaxAge:     cfg.InitDataMaxAge,
		DemoMode:   cfg.DemoMode,
		DemoUserID: cfg.DemoUserID,
	})
	router := NewRouter(ctx, cfg, RouterDeps{
		DB:       pool,
		Verifier: verifier,
		Bot:      b,
		Accounts: accounts.NewHandler(accountsService),
		Casino:   casino.NewHandler(casinoService),
		Deposits: deposits.NewHandler(depositsService),
		Admin:    admin.NewHandler(adminService),
	})

	// === 8. Планировщик задач ===
	deps := jobs.Deps{Outbox: outbox, Deposits: depositsService}
	if b != nil && cfg.DailyReportEnabled {
		deps.Reporter = adminService
		deps.Sender = b
	}
	scheduler := jobs.NewScheduler(loc, deps)

	return &App{
		Config:    cfg,
		DB:        pool,
		Redis:     rdb,
		Kafka:     producer,
		Bot:       b,
		Scheduler: scheduler,
		Router:    router,
	}, nil
}

// Close освобождает внешние подключения. Вызывается после остановки HTTP и бота.
func (a *App) Close() {
	if a.Bot != nil {
		done := make(chan struct{})
		go func() {
			a.Bot.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(a.Config.HTTPShutdownTimeout):
			log.Warn("Не дождались завершения обработчиков бота")
		}
	}
	if err := a.Kafka.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия Kafka продюсера")
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	a.DB.Close()
}
