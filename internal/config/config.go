// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID чата класса, в котором идёт игра (единственный разрешённый групповой чат)
	ClassChatID int64 `envconfig:"CLASS_CHAT_ID" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"gameuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"economy_game"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Redis (присутствие игроков + рейтинг) ---
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Адрес служебного HTTP-сервера (/healthz, /metrics)
	OpsAddr string `envconfig:"OPS_ADDR" default:":9090"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Game ---
	// Стартовый баланс нового игрока
	GameStartingCoins int64 `envconfig:"GAME_STARTING_COINS" default:"100"`
	// Максимум сделок между парой игроков (в обе стороны суммарно)
	DealPairLimit int `envconfig:"DEAL_PAIR_LIMIT" default:"5"`
	// Интервал опроса ответа второго игрока
	DealPollInterval time.Duration `envconfig:"DEAL_POLL_INTERVAL" default:"2s"`
	// Сколько ждём ответа, прежде чем засчитать «обман» по умолчанию
	DealResponseTimeout time.Duration `envconfig:"DEAL_RESPONSE_TIMEOUT" default:"60s"`
	// Окно активности: игрок «доступен», если появлялся за этот период
	PresenceWindow time.Duration `envconfig:"PRESENCE_WINDOW" default:"5m"`

	// --- Deposits ---
	// Надёжный вклад: фиксированный процент прибыли и срок
	DepositSafeRatePct int           `envconfig:"DEPOSIT_SAFE_RATE_PCT" default:"10"`
	DepositSafeTerm    time.Duration `envconfig:"DEPOSIT_SAFE_TERM" default:"1h"`
	// Рискованный вклад: 40% шанс +20%, иначе -10%
	DepositRiskyTerm time.Duration `envconfig:"DEPOSIT_RISKY_TERM" default:"30m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureShopEnabled     bool `envconfig:"FEATURE_SHOP_ENABLED" default:"true"`
	FeatureDepositsEnabled bool `envconfig:"FEATURE_DEPOSITS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.ClassChatID == 0 {
		return fmt.Errorf("CLASS_CHAT_ID не задан или равен 0")
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
	if c.DealPairLimit <= 0 {
		return fmt.Errorf("DEAL_PAIR_LIMIT должен быть > 0")
	}
	if c.DealPollInterval <= 0 || c.DealResponseTimeout <= c.DealPollInterval {
		return fmt.Errorf("DEAL_RESPONSE_TIMEOUT должен быть больше DEAL_POLL_INTERVAL")
	}
	if c.DepositSafeRatePct < 0 {
		return fmt.Errorf("DEPOSIT_SAFE_RATE_PCT не может быть отрицательным")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
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
