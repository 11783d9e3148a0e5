// Package deals — waiter.go реализует ожидание ответа второго игрока.
//
// Это отменяемая обёртка над опросом записи сделки: тикер с фиксированным
// интервалом до тех пор, пока сделка не завершится, не истечёт таймаут
// ответа или не отменится контекст. Сам waiter состояние не меняет —
// решение о «обмане по умолчанию» принимает сервис поверх
// common.ErrAwaitTimeout, а единственность завершения гарантирует
// compare-and-swap в репозитории.
package deals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"godspace.ru/economy-game/internal/common"
)

// DealReader — минимальный доступ к записи сделки для опроса.
type DealReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Deal, error)
}

// Await опрашивает сделку каждые interval, пока она не завершится.
//
// Возвращает:
//   - завершённую сделку, как только её статус перестал быть pending;
//   - common.ErrAwaitTimeout, если за timeout ответа не было;
//   - ошибку контекста при отмене.
//
// Ошибка одного чтения не прерывает ожидание: следующий тик опросит снова.
func Await(ctx context.Context, reader DealReader, id uuid.UUID, interval, timeout time.Duration) (*Deal, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			return nil, common.ErrAwaitTimeout

		case <-ticker.C:
			d, err := reader.GetByID(ctx, id)
			if err != nil {
				continue
			}
			if d.Resolved() {
				return d, nil
			}
		}
	}
}
