// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, Redis, репозитории, сервисы,
// обработчики, фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/bot"
	"godspace.ru/economy-game/internal/bot/filters"
	"godspace.ru/economy-game/internal/config"
	"godspace.ru/economy-game/internal/db/postgres"
	"godspace.ru/economy-game/internal/db/redis"
	"godspace.ru/economy-game/internal/features/admin"
	"godspace.ru/economy-game/internal/features/deals"
	"godspace.ru/economy-game/internal/features/deposits"
	"godspace.ru/economy-game/internal/features/players"
	"godspace.ru/economy-game/internal/features/rating"
	"godspace.ru/economy-game/internal/features/shop"
	"godspace.ru/economy-game/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Redis     *goredis.Client
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Redis (присутствие + кэш рейтинга) ===
	rdb, err := redis.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 4. Репозитории ===
	playerRepo := players.NewRepository(pool)
	dealRepo := deals.NewRepository(pool)
	ratingRepo := rating.NewRepository(pool)
	shopRepo := shop.NewRepository(pool)
	depositRepo := deposits.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 5. Сервисы ===
	presence := players.NewPresenceTracker(rdb, cfg.PresenceWindow)
	playerService := players.NewService(playerRepo, presence, cfg.PresenceWindow)
	ratingService := rating.NewService(rdb, ratingRepo)
	dealService := deals.NewService(dealRepo, playerService, ratingService, cfg)
	shopService := shop.NewService(shopRepo, ratingService, logger)
	depositService := deposits.NewService(depositRepo, ratingService, cfg, logger)
	adminService := admin.NewService(adminRepo, cfg)

	// === 6. Обработчики ===
	playerHandler := players.NewHandler(playerService, dealService, botAPI, cfg.DealPairLimit)
	dealHandler := deals.NewHandler(dealService, playerService, botAPI)
	ratingHandler := rating.NewHandler(ratingService, botAPI)
	shopHandler := shop.NewHandler(shopService, botAPI, cfg.AdminIDs)
	depositHandler := deposits.NewHandler(depositService, playerService, botAPI)
	adminHandler := admin.NewHandler(adminService, shopService, shopHandler, playerService, ratingService, botAPI)

	// === 7. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.ClassChatID, cfg.AdminIDs)

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		playerService,
		playerHandler,
		dealHandler,
		ratingHandler,
		shopHandler,
		depositHandler,
		adminHandler,
		chatFilter,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(dealService, depositService, adminService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		Redis:     rdb,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Players},
		{2, migration002Deals},
		{3, migration003Transactions},
		{4, migration004Shop},
		{5, migration005Deposits},
		{6, migration006Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Players = `
CREATE TABLE IF NOT EXISTS players (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(16) UNIQUE NOT NULL,
    telegram_user_id BIGINT UNIQUE,
    username VARCHAR(255),
    display_name VARCHAR(255) NOT NULL,
    class_name VARCHAR(64) NOT NULL,
    color VARCHAR(16) NOT NULL DEFAULT '#4A90D9',
    coins BIGINT NOT NULL DEFAULT 100,
    total_deals INT NOT NULL DEFAULT 0,
    last_active TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_players_code ON players(code);
CREATE INDEX IF NOT EXISTS idx_players_telegram ON players(telegram_user_id);
CREATE INDEX IF NOT EXISTS idx_players_username ON players(username);
`

var migration002Deals = `
CREATE TABLE IF NOT EXISTS deals (
    id UUID PRIMARY KEY,
    initiator_code VARCHAR(16) NOT NULL REFERENCES players(code),
    counterpart_code VARCHAR(16) NOT NULL REFERENCES players(code),
    initiator_choice VARCHAR(16) NOT NULL,
    counterpart_choice VARCHAR(16),
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    initiator_delta BIGINT NOT NULL DEFAULT 0,
    counterpart_delta BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    resolved_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_deals_pair ON deals(initiator_code, counterpart_code);
CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
`

var migration003Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    from_code VARCHAR(16) REFERENCES players(code),
    to_code VARCHAR(16) REFERENCES players(code),
    amount BIGINT NOT NULL,
    tx_type VARCHAR(32) NOT NULL,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_code);
CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_code);
`

var migration004Shop = `
CREATE TABLE IF NOT EXISTS products (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    price BIGINT NOT NULL CHECK (price > 0),
    active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    player_code VARCHAR(16) NOT NULL REFERENCES players(code),
    product_id BIGINT NOT NULL REFERENCES products(id),
    quantity INT NOT NULL CHECK (quantity > 0),
    total BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    admin_note TEXT,
    confirmed_by BIGINT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_player ON orders(player_code);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

INSERT INTO products (title, price)
SELECT * FROM (VALUES
    ('Пятёрка по поведению', 50::BIGINT),
    ('Пересдача контрольной', 120::BIGINT),
    ('День без домашки', 200::BIGINT)
) AS seed(title, price)
WHERE NOT EXISTS (SELECT 1 FROM products);
`

var migration005Deposits = `
CREATE TABLE IF NOT EXISTS deposits (
    id BIGSERIAL PRIMARY KEY,
    player_code VARCHAR(16) NOT NULL REFERENCES players(code),
    amount BIGINT NOT NULL CHECK (amount > 0),
    deposit_type VARCHAR(16) NOT NULL,
    expected_profit BIGINT,
    actual_profit BIGINT,
    start_time TIMESTAMP NOT NULL DEFAULT NOW(),
    end_time TIMESTAMP NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS idx_deposits_player ON deposits(player_code);
CREATE INDEX IF NOT EXISTS idx_deposits_status_end ON deposits(status, end_time);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) NOT NULL,
    authenticated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    last_activity TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions(user_id);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_user ON admin_login_attempts(user_id, attempt_time);
`
