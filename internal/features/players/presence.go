// Package players — presence.go отслеживает присутствие игроков через Redis.
// Каждое сообщение игрока ставит ключ с TTL, равным окну активности;
// истёкший ключ означает «игрок недоступен». Проверка дешёвая и не ходит в БД.
package players

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// PresenceTracker хранит отметки присутствия в Redis.
type PresenceTracker struct {
	rdb    *redis.Client
	window time.Duration
}

func NewPresenceTracker(rdb *redis.Client, window time.Duration) *PresenceTracker {
	return &PresenceTracker{rdb: rdb, window: window}
}

func presenceKey(code string) string {
	return fmt.Sprintf("presence:%s", code)
}

// Touch продлевает отметку присутствия игрока на окно активности.
func (t *PresenceTracker) Touch(ctx context.Context, code string) {
	if err := t.rdb.Set(ctx, presenceKey(code), 1, t.window).Err(); err != nil {
		// Присутствие — вспомогательный сигнал, при сбое Redis
		// остаётся отметка last_active в Postgres
		log.WithError(err).WithField("code", code).Debug("presence touch failed")
	}
}

// IsOnline проверяет отметку присутствия.
// Второе значение false, если Redis не ответил и сигнала нет.
func (t *PresenceTracker) IsOnline(ctx context.Context, code string) (bool, bool) {
	n, err := t.rdb.Exists(ctx, presenceKey(code)).Result()
	if err != nil {
		return false, false
	}
	return n > 0, true
}

// Forget снимает отметку (выход игрока).
func (t *PresenceTracker) Forget(ctx context.Context, code string) {
	if err := t.rdb.Del(ctx, presenceKey(code)).Err(); err != nil {
		log.WithError(err).WithField("code", code).Debug("presence forget failed")
	}
}
