package deposits

import (
	"context"
	"errors"
	"fmt"

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

// Open списывает сумму вклада со счёта и создаёт активный вклад.
// Баланс проверяется под FOR UPDATE, всё в одной транзакции.
func (r *Repository) Open(ctx context.Context, d *Deposit) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var coins int64
	err = tx.QueryRow(ctx,
		`SELECT coins FROM players WHERE code = $1 FOR UPDATE`, d.PlayerCode,
	).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrPlayerNotFound
		}
		return fmt.Errorf("ошибка чтения баланса: %w", err)
	}
	if coins < d.Amount {
		return common.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE players SET coins = coins - $2, updated_at = NOW() WHERE code = $1`,
		d.PlayerCode, d.Amount)
	if err != nil {
		return fmt.Errorf("ошибка списания: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO deposits (player_code, amount, deposit_type, expected_profit, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, d.PlayerCode, d.Amount, d.Type, d.ExpectedProfit, d.StartTime, d.EndTime, StatusActive).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("ошибка создания вклада: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_code, amount, tx_type, description)
		VALUES ($1, $2, 'deposit', $3)
	`, d.PlayerCode, d.Amount, fmt.Sprintf("Вклад №%d (%s)", d.ID, d.TypeRussian()))
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации вклада: %w", err)
	}
	d.Status = StatusActive
	return nil
}

const depositColumns = `id, player_code, amount, deposit_type, expected_profit, actual_profit,
	       start_time, end_time, status`

func scanDeposit(row pgx.Row) (*Deposit, error) {
	var d Deposit
	err := row.Scan(
		&d.ID, &d.PlayerCode, &d.Amount, &d.Type, &d.ExpectedProfit, &d.ActualProfit,
		&d.StartTime, &d.EndTime, &d.Status,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByPlayer возвращает вклады игрока (новые сверху).
func (r *Repository) ListByPlayer(ctx context.Context, playerCode string, limit int) ([]*Deposit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE player_code = $1 ORDER BY start_time DESC LIMIT $2`,
		playerCode, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка вкладов: %w", err)
	}
	defer rows.Close()

	var out []*Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вклада: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FindExpiredActive возвращает активные вклады с истёкшим сроком.
func (r *Repository) FindExpiredActive(ctx context.Context) ([]*Deposit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE status = $1 AND end_time <= NOW() ORDER BY end_time`,
		StatusActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истёкших вкладов: %w", err)
	}
	defer rows.Close()

	var out []*Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования вклада: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Resolve закрывает вклад и зачисляет сумму с прибылью обратно на счёт.
// CAS по статусу active: вклад закрывается ровно один раз, даже если
// две копии планировщика подберут его одновременно.
func (r *Repository) Resolve(ctx context.Context, depositID int64, profit int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var playerCode string
	var amount int64
	err = tx.QueryRow(ctx, `
		UPDATE deposits
		SET status = $2, actual_profit = $3
		WHERE id = $1 AND status = $4
		RETURNING player_code, amount
	`, depositID, StatusCompleted, profit, StatusActive).Scan(&playerCode, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrDepositAlreadyResolved
		}
		return fmt.Errorf("ошибка закрытия вклада: %w", err)
	}

	payout := amount + profit
	_, err = tx.Exec(ctx,
		`UPDATE players SET coins = coins + $2, updated_at = NOW() WHERE code = $1`,
		playerCode, payout)
	if err != nil {
		return fmt.Errorf("ошибка зачисления: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (to_code, amount, tx_type, description)
		VALUES ($1, $2, 'deposit_payout', $3)
	`, playerCode, payout, fmt.Sprintf("Закрытие вклада №%d (%s)", depositID, common.FormatDelta(profit)))
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации закрытия вклада: %w", err)
	}
	return nil
}
