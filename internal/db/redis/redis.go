// Package redis управляет подключением к Redis.
// Redis хранит «горячее» состояние: отметки присутствия игроков
// и кэш рейтинга (ZSET по балансу).
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"godspace.ru/economy-game/internal/config"
)

// NewClient создаёт клиент Redis и проверяет соединение.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}

	log.WithField("addr", cfg.RedisAddr).Info("Подключение к Redis установлено")
	return rdb, nil
}
