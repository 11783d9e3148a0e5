// Package rating — service.go отдаёт таблицу лидеров.
//
// Горячий путь — ZSET в Redis, который сервисы обновляют после каждого
// изменения баланса (Sync). Если Redis молчит или пуст — читаем Postgres
// напрямую и заодно наполняем кэш заново.
package rating

import (
	"context"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ratingKey — ZSET «код игрока → монеты».
const ratingKey = "rating:coins"

// Service управляет рейтингом.
type Service struct {
	rdb  *redis.Client
	repo *Repository
}

// NewService создаёт сервис рейтинга.
func NewService(rdb *redis.Client, repo *Repository) *Service {
	return &Service{rdb: rdb, repo: repo}
}

// Sync обновляет счёт указанных игроков в ZSET по авторитетным
// значениям из Postgres. Ошибки не фатальны: рейтинг — кэш,
// источником истины остаётся БД.
func (s *Service) Sync(ctx context.Context, codes ...string) {
	if len(codes) == 0 {
		return
	}

	entries, err := s.repo.GetEntries(ctx, codes)
	if err != nil {
		log.WithError(err).Warn("Не удалось прочитать балансы для рейтинга")
		return
	}

	members := make([]redis.Z, 0, len(entries))
	for code, e := range entries {
		members = append(members, redis.Z{Score: float64(e.Coins), Member: code})
	}
	if len(members) == 0 {
		return
	}

	if err := s.rdb.ZAdd(ctx, ratingKey, members...).Err(); err != nil {
		log.WithError(err).Debug("Не удалось обновить ZSET рейтинга")
	}
}

// Top возвращает первых limit игроков.
// Сначала пробуем Redis; при промахе — Postgres с наполнением кэша.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, ratingKey, 0, int64(limit-1)).Result()
	if err == nil && len(zs) > 0 {
		codes := make([]string, 0, len(zs))
		for _, z := range zs {
			if code, ok := z.Member.(string); ok {
				codes = append(codes, code)
			}
		}
		entries, rerr := s.repo.GetEntries(ctx, codes)
		if rerr == nil {
			out := make([]Entry, 0, len(zs))
			for _, z := range zs {
				code, _ := z.Member.(string)
				if e, ok := entries[code]; ok {
					out = append(out, e)
				}
			}
			if len(out) > 0 {
				return out, nil
			}
		}
	}

	// Промах кэша или сбой Redis — авторитетный источник
	top, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	// Наполняем кэш для следующих запросов
	codes := make([]string, 0, len(top))
	for _, e := range top {
		codes = append(codes, e.Code)
	}
	s.Sync(ctx, codes...)

	return top, nil
}
