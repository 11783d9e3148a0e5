// Package deals — repository.go выполняет все операции с таблицей deals.
// Завершение сделки — одна транзакция БД: перевод сделки из pending,
// обновление обоих балансов и запись истории либо происходят целиком,
// либо не происходят вовсе.
package deals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"godspace.ru/economy-game/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const dealColumns = `id, initiator_code, counterpart_code, initiator_choice, counterpart_choice,
	       status, initiator_delta, counterpart_delta, created_at, resolved_at`

func scanDeal(row pgx.Row) (*Deal, error) {
	var d Deal
	var counterpartChoice *string
	err := row.Scan(
		&d.ID, &d.InitiatorCode, &d.CounterpartCode, &d.InitiatorChoice, &counterpartChoice,
		&d.Status, &d.InitiatorDelta, &d.CounterpartDelta, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if counterpartChoice != nil {
		c := Choice(*counterpartChoice)
		d.CounterpartChoice = &c
	}
	return &d, nil
}

// Create сохраняет новую сделку со статусом pending.
func (r *Repository) Create(ctx context.Context, d *Deal) error {
	query := `
		INSERT INTO deals (id, initiator_code, counterpart_code, initiator_choice, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.InitiatorCode, d.CounterpartCode, string(d.InitiatorChoice), StatusPending)
	if err != nil {
		return fmt.Errorf("ошибка создания сделки: %w", err)
	}
	return nil
}

// GetByID читает сделку; common.ErrDealNotFound, если её нет.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Deal, error) {
	d, err := scanDeal(r.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrDealNotFound
		}
		return nil, fmt.Errorf("ошибка чтения сделки: %w", err)
	}
	return d, nil
}

// PairCount считает сделки между упорядоченной парой по журналу сделок.
// Счётчик каждый раз выводится заново из БД, отдельного счётчика в памяти нет.
// Отменённые сделки лимит не тратят.
func (r *Repository) PairCount(ctx context.Context, initiatorCode, counterpartCode string) (outgoing, incoming int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE initiator_code = $1 AND counterpart_code = $2),
			COUNT(*) FILTER (WHERE initiator_code = $2 AND counterpart_code = $1)
		FROM deals
		WHERE status <> $3
		  AND ((initiator_code = $1 AND counterpart_code = $2)
		    OR (initiator_code = $2 AND counterpart_code = $1))
	`
	err = r.db.QueryRow(ctx, query, initiatorCode, counterpartCode, StatusCancelled).Scan(&outgoing, &incoming)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчёта сделок пары: %w", err)
	}
	return outgoing, incoming, nil
}

// HasPending проверяет, есть ли у инициатора незавершённая сделка.
// У игрока может быть не больше одной сделки в полёте.
func (r *Repository) HasPending(ctx context.Context, initiatorCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM deals WHERE initiator_code = $1 AND status = $2)`,
		initiatorCode, StatusPending,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки активной сделки: %w", err)
	}
	return exists, nil
}

// Resolve завершает сделку с выбором второго игрока и выплатами.
//
// Защита «не больше одного завершения»: UPDATE срабатывает только пока
// статус pending. Ноль затронутых строк означает, что гонку выиграл
// другой участник (поздний ответ против таймаута) — возвращаем
// common.ErrDealAlreadyResolved, ничего не применяя.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, counterpartChoice Choice, p Payoff) (*Deal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	d, err := scanDeal(tx.QueryRow(ctx, `
		UPDATE deals
		SET status = $2, counterpart_choice = $3,
		    initiator_delta = $4, counterpart_delta = $5, resolved_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING `+dealColumns,
		id, StatusCompleted, string(counterpartChoice), p.Initiator, p.Counterpart, StatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrDealAlreadyResolved
		}
		return nil, fmt.Errorf("ошибка завершения сделки: %w", err)
	}

	// Балансы и счётчики сделок обеих сторон — в той же транзакции
	if err := applyDelta(ctx, tx, d.InitiatorCode, p.Initiator); err != nil {
		return nil, err
	}
	if err := applyDelta(ctx, tx, d.CounterpartCode, p.Counterpart); err != nil {
		return nil, err
	}

	// По строке истории на игрока: строка принадлежит получателю (to_code)
	// и хранит его подписанную дельту.
	desc := fmt.Sprintf("Сделка с %s: %s против %s",
		d.CounterpartCode, d.InitiatorChoice.Russian(), counterpartChoice.Russian())
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_code, to_code, amount, tx_type, description)
		VALUES ($1, $2, $3, 'deal', $4)
	`, d.CounterpartCode, d.InitiatorCode, p.Initiator, desc)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции инициатора: %w", err)
	}

	desc = fmt.Sprintf("Сделка с %s: %s против %s",
		d.InitiatorCode, counterpartChoice.Russian(), d.InitiatorChoice.Russian())
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_code, to_code, amount, tx_type, description)
		VALUES ($1, $2, $3, 'deal', $4)
	`, d.InitiatorCode, d.CounterpartCode, p.Counterpart, desc)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции второго игрока: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации сделки: %w", err)
	}
	return d, nil
}

func applyDelta(ctx context.Context, tx pgx.Tx, code string, delta int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE players
		SET coins = coins + $2, total_deals = total_deals + 1, updated_at = NOW()
		WHERE code = $1
	`, code, delta)
	if err != nil {
		return fmt.Errorf("ошибка применения выплаты (%s): %w", code, err)
	}
	return nil
}

// FindStalePending возвращает незавершённые сделки старше порога.
// Используется фоновой задачей: если процесс с ожидающей горутиной упал,
// сделка всё равно закроется обманом по умолчанию.
func (r *Repository) FindStalePending(ctx context.Context, olderThan time.Duration) ([]*Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE status = $1 AND created_at < NOW() - $2::interval`
	rows, err := r.db.Query(ctx, query, StatusPending, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска зависших сделок: %w", err)
	}
	defer rows.Close()

	var out []*Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования сделки: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
