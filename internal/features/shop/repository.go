// Package shop — repository.go выполняет операции с таблицами products и orders.
// Покупка и отмена — транзакции БД: списание/возврат и смена статуса
// заказа либо происходят вместе, либо не происходят вовсе.
package shop

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

// ListProducts возвращает товары в продаже.
func (r *Repository) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, price, active FROM products WHERE active ORDER BY price, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка товаров: %w", err)
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Active); err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// GetProduct возвращает товар в продаже по ID.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx,
		`SELECT id, title, price, active FROM products WHERE id = $1 AND active`, id,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrProductNotFound
		}
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	return &p, nil
}

// Purchase списывает стоимость и создаёт pending-заказ.
// Баланс проверяется под блокировкой строки (FOR UPDATE) —
// два одновременных заказа не уведут счёт в минус.
func (r *Repository) Purchase(ctx context.Context, playerCode string, product *Product, quantity int) (*Order, error) {
	total := product.Price * int64(quantity)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var coins int64
	err = tx.QueryRow(ctx,
		`SELECT coins FROM players WHERE code = $1 FOR UPDATE`, playerCode,
	).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса: %w", err)
	}
	if coins < total {
		return nil, common.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE players SET coins = coins - $2, updated_at = NOW() WHERE code = $1`,
		playerCode, total)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания: %w", err)
	}

	var o Order
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (player_code, product_id, quantity, total, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, playerCode, product.ID, quantity, total, OrderPending).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_code, amount, tx_type, description)
		VALUES ($1, $2, 'purchase', $3)
	`, playerCode, total, fmt.Sprintf("Покупка: %s x%d", product.Title, quantity))
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации покупки: %w", err)
	}

	o.PlayerCode = playerCode
	o.ProductID = product.ID
	o.ProductTitle = product.Title
	o.Quantity = quantity
	o.Total = total
	o.Status = OrderPending
	return &o, nil
}

const orderColumns = `o.id, o.player_code, o.product_id, p.title, o.quantity, o.total,
	       o.status, o.admin_note, o.confirmed_by, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.PlayerCode, &o.ProductID, &o.ProductTitle, &o.Quantity, &o.Total,
		&o.Status, &o.AdminNote, &o.ConfirmedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder возвращает заказ по номеру.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN products p ON p.id = o.product_id WHERE o.id = $1`
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrOrderNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заказа: %w", err)
	}
	return o, nil
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка заказов: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListByPlayer возвращает заказы игрока (новые сверху).
func (r *Repository) ListByPlayer(ctx context.Context, playerCode string, limit int) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN products p ON p.id = o.product_id
		WHERE o.player_code = $1 ORDER BY o.created_at DESC LIMIT $2`
	return r.queryOrders(ctx, query, playerCode, limit)
}

// ListPending возвращает заказы, ожидающие решения администратора.
func (r *Repository) ListPending(ctx context.Context) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o JOIN products p ON p.id = o.product_id
		WHERE o.status = $1 ORDER BY o.created_at`
	return r.queryOrders(ctx, query, OrderPending)
}

// Confirm подтверждает pending-заказ.
// CAS по статусу: повторное подтверждение или подтверждение отменённого
// заказа возвращает common.ErrOrderNotPending.
func (r *Repository) Confirm(ctx context.Context, orderID, adminID int64, note string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, confirmed_by = $3, admin_note = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, orderID, OrderConfirmed, adminID, note, OrderPending)
	if err != nil {
		return fmt.Errorf("ошибка подтверждения заказа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrOrderNotPending
	}
	return nil
}

// Cancel отменяет pending-заказ и возвращает стоимость игроку.
// Всё в одной транзакции; CAS по статусу защищает от двойного возврата.
func (r *Repository) Cancel(ctx context.Context, orderID, adminID int64, reason string) (*Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var o Order
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, confirmed_by = $3, admin_note = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING id, player_code, product_id, quantity, total, status, admin_note, confirmed_by, created_at, updated_at
	`, orderID, OrderCancelled, adminID, reason, OrderPending).Scan(
		&o.ID, &o.PlayerCode, &o.ProductID, &o.Quantity, &o.Total,
		&o.Status, &o.AdminNote, &o.ConfirmedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrOrderNotPending
		}
		return nil, fmt.Errorf("ошибка отмены заказа: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE players SET coins = coins + $2, updated_at = NOW() WHERE code = $1`,
		o.PlayerCode, o.Total)
	if err != nil {
		return nil, fmt.Errorf("ошибка возврата: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (to_code, amount, tx_type, description)
		VALUES ($1, $2, 'refund', $3)
	`, o.PlayerCode, o.Total, fmt.Sprintf("Возврат за заказ №%d", o.ID))
	if err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации отмены: %w", err)
	}
	return &o, nil
}
