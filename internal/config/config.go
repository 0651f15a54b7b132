// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// .env подхватывается godotenv, если файл есть рядом с бинарником.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Режимы получения апдейтов от Telegram.
const (
	UpdatesModePolling = "polling"
	UpdatesModeWebhook = "webhook"
)

// DepositTier — одна строка меню пополнения: сумма в звёздах и бонус в процентах.
type DepositTier struct {
	Amount       int64
	BonusPercent int64
}

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	// Пустой токен допустим: сервис работает, но без оплаты и уведомлений.
	TelegramBotToken      string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramUpdatesMode   string `envconfig:"TELEGRAM_UPDATES_MODE" default:"polling"`
	TelegramWebhookSecret string `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	WebAppURL             string `envconfig:"WEBAPP_URL"`

	AdminIDsRaw string  `envconfig:"ADMIN_IDS"`
	AdminIDs    []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost          string `envconfig:"DB_HOST" default:"postgres"`
	DBPort          int    `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" default:"casino"`
	DBPassword      string `envconfig:"DB_PASSWORD" required:"true"`
	DBName          string `envconfig:"DB_NAME" default:"stars_casino"`
	DBSSLMode       string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns      int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns      int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	DBTxMaxAttempts int    `envconfig:"DB_TX_MAX_ATTEMPTS" default:"3"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Logging ---
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"7"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"14"`

	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":3000"`
	FrontendURL         string        `envconfig:"FRONTEND_URL" default:"*"`
	HTTPReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Auth ---
	// Демо-режим пускает запросы без initData под фиксированным пользователем. Только для локальной разработки.
	DemoMode       bool          `envconfig:"DEMO_MODE" default:"false"`
	DemoUserID     int64         `envconfig:"DEMO_USER_ID" default:"1"`
	InitDataMaxAge time.Duration `envconfig:"INIT_DATA_MAX_AGE" default:"24h"`

	// --- Casino ---
	CasinoInitialBalance int64   `envconfig:"CASINO_INITIAL_BALANCE" default:"500"`
	CasinoStakesRaw      string  `envconfig:"CASINO_STAKES" default:"10,25,50,100,250,500"`
	CasinoStakes         []int64 `envconfig:"-"`
	CasinoHistoryDefault int     `envconfig:"CASINO_HISTORY_DEFAULT" default:"20"`
	CasinoHistoryMax     int     `envconfig:"CASINO_HISTORY_MAX" default:"50"`

	// --- Deposits ---
	DepositTiersRaw string        `envconfig:"DEPOSIT_TIERS" default:"50:0,100:5,250:10,500:15,1000:20,2500:25"`
	DepositTiers    []DepositTier `envconfig:"-"`

	// --- Redis ---
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	ConfirmLockTTL time.Duration `envconfig:"CONFIRM_LOCK_TTL" default:"30s"`

	// --- Kafka / outbox ---
	KafkaBrokers     string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix string `envconfig:"KAFKA_TOPIC_PREFIX" default:"stars-casino"`
	OutboxBatchSize  int    `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`

	// --- Ops ---
	MetricsPasswordHash string `envconfig:"METRICS_PASSWORD_HASH"`
	DailyReportEnabled  bool   `envconfig:"DAILY_REPORT_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// BotConfigured сообщает, задан ли токен бота.
func (c *Config) BotConfigured() bool {
	return c.TelegramBotToken != ""
}

// IsAdmin проверяет, входит ли userID в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.TelegramUpdatesMode != UpdatesModePolling && c.TelegramUpdatesMode != UpdatesModeWebhook {
		return fmt.Errorf("TELEGRAM_UPDATES_MODE должен быть polling или webhook, получено %q", c.TelegramUpdatesMode)
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.DBTxMaxAttempts <= 0 {
		return fmt.Errorf("DB_TX_MAX_ATTEMPTS должен быть > 0")
	}
	if c.CasinoInitialBalance < 0 {
		return fmt.Errorf("CASINO_INITIAL_BALANCE не может быть отрицательным")
	}
	if len(c.CasinoStakes) == 0 {
		return fmt.Errorf("CASINO_STAKES пуст")
	}
	for _, s := range c.CasinoStakes {
		if s <= 0 {
			return fmt.Errorf("ставка %d в CASINO_STAKES должна быть > 0", s)
		}
	}
	if c.CasinoHistoryDefault <= 0 || c.CasinoHistoryMax <= 0 || c.CasinoHistoryDefault > c.CasinoHistoryMax {
		return fmt.Errorf("некорректные CASINO_HISTORY_DEFAULT/CASINO_HISTORY_MAX")
	}
	if len(c.DepositTiers) == 0 {
		return fmt.Errorf("DEPOSIT_TIERS пуст")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE должен быть > 0")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.parseLists(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) parseLists() error {
	ids, err := parseInt64CSV(c.AdminIDsRaw)
	if err != nil {
		return fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	c.AdminIDs = ids

	stakes, err := parseInt64CSV(c.CasinoStakesRaw)
	if err != nil {
		return fmt.Errorf("CASINO_STAKES parse: %w", err)
	}
	c.CasinoStakes = stakes

	tiers, err := parseTiers(c.DepositTiersRaw)
	if err != nil {
		return fmt.Errorf("DEPOSIT_TIERS parse: %w", err)
	}
	c.DepositTiers = tiers
	return nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseTiers разбирает строку вида "50:0,100:5,250:10".
// Результат отсортирован по сумме, дубликаты сумм запрещены.
func parseTiers(s string) ([]DepositTier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[int64]bool)
	var out []DepositTier
	for _, p := range strings.Split(s, ",") {
		amountRaw, pctRaw, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok {
			return nil, fmt.Errorf("bad tier %q: ожидается amount:percent", p)
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(amountRaw), 10, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("bad tier amount %q", amountRaw)
		}
		pct, err := strconv.ParseInt(strings.TrimSpace(pctRaw), 10, 64)
		if err != nil || pct < 0 {
			return nil, fmt.Errorf("bad tier percent %q", pctRaw)
		}
		if seen[amount] {
			return nil, fmt.Errorf("duplicate tier amount %d", amount)
		}
		seen[amount] = true
		out = append(out, DepositTier{Amount: amount, BonusPercent: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}
