// Package players — repository.go отвечает за все операции с таблицей players в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package players

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

const playerColumns = `id, code, telegram_user_id, username, display_name, class_name, color,
	       coins, total_deals, last_active, created_at, updated_at`

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(
		&p.ID, &p.Code, &p.TelegramUserID, &p.Username, &p.DisplayName,
		&p.ClassName, &p.Color, &p.Coins, &p.TotalDeals,
		&p.LastActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create заводит нового игрока со стартовым балансом.
// Код должен быть уникален: конфликт — common.ErrCodeTaken.
func (r *Repository) Create(ctx context.Context, code, displayName, className string, coins int64) (*Player, error) {
	query := `
		INSERT INTO players (code, display_name, class_name, coins)
		VALUES (UPPER($1), $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
		RETURNING ` + playerColumns
	p, err := scanPlayer(r.db.QueryRow(ctx, query, code, displayName, className, coins))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrCodeTaken
		}
		return nil, fmt.Errorf("ошибка создания игрока (code=%s): %w", code, err)
	}
	return p, nil
}

// GetByCode: если не найден — common.ErrPlayerNotFound.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE UPPER(code) = UPPER($1)`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("ошибка чтения игрока (code=%s): %w", code, err)
	}
	return p, nil
}

// GetByTelegramID возвращает игрока, к которому привязан Telegram-аккаунт.
func (r *Repository) GetByTelegramID(ctx context.Context, tgUserID int64) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE telegram_user_id = $1`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, tgUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotLoggedIn
		}
		return nil, fmt.Errorf("ошибка чтения игрока (tg=%d): %w", tgUserID, err)
	}
	return p, nil
}

// GetByUsername ищет игрока по Telegram-username (без @).
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE LOWER(username) = LOWER($1)`
	p, err := scanPlayer(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("ошибка чтения игрока (username=%s): %w", username, err)
	}
	return p, nil
}

// BindTelegram привязывает Telegram-аккаунт к коду игрока.
// Возвращает common.ErrCodeNotFound, если кода нет,
// и common.ErrCodeTaken, если код уже привязан к другому аккаунту.
func (r *Repository) BindTelegram(ctx context.Context, code string, tgUserID int64, username, displayName string) (*Player, error) {
	query := `
		UPDATE players
		SET telegram_user_id = $2, username = NULLIF($3, ''), display_name = $4,
		    last_active = NOW(), updated_at = NOW()
		WHERE UPPER(code) = UPPER($1)
		  AND (telegram_user_id IS NULL OR telegram_user_id = $2)
		RETURNING ` + playerColumns
	p, err := scanPlayer(r.db.QueryRow(ctx, query, code, tgUserID, username, displayName))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка привязки кода: %w", err)
	}

	// UPDATE никого не задел: различаем «кода нет» и «код занят»
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM players WHERE UPPER(code) = UPPER($1))`, code,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("ошибка проверки кода: %w", err)
	}
	if !exists {
		return nil, common.ErrCodeNotFound
	}
	return nil, common.ErrCodeTaken
}

// UnbindTelegram отвязывает Telegram-аккаунт (выход из игры).
func (r *Repository) UnbindTelegram(ctx context.Context, tgUserID int64) error {
	query := `
		UPDATE players
		SET telegram_user_id = NULL, updated_at = NOW()
		WHERE telegram_user_id = $1
	`
	tag, err := r.db.Exec(ctx, query, tgUserID)
	if err != nil {
		return fmt.Errorf("ошибка выхода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotLoggedIn
	}
	return nil
}

// Touch обновляет отметку активности игрока.
// Вызывается на каждое сообщение от вошедшего игрока.
func (r *Repository) Touch(ctx context.Context, code string) error {
	query := `UPDATE players SET last_active = NOW(), updated_at = NOW() WHERE code = $1`
	if _, err := r.db.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("ошибка обновления активности: %w", err)
	}
	return nil
}

// ListBound возвращает всех игроков с привязанным Telegram-аккаунтом.
// Фильтрацию по окну активности выполняет сервис (FilterActive).
func (r *Repository) ListBound(ctx context.Context) ([]*Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE telegram_user_id IS NOT NULL ORDER BY display_name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка игроков: %w", err)
	}
	defer rows.Close()

	var out []*Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования игрока: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetCoins возвращает текущий баланс игрока (авторитетное значение из БД).
func (r *Repository) GetCoins(ctx context.Context, code string) (int64, error) {
	var coins int64
	err := r.db.QueryRow(ctx, `SELECT coins FROM players WHERE code = $1`, code).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrPlayerNotFound
		}
		return 0, fmt.Errorf("ошибка чтения баланса: %w", err)
	}
	return coins, nil
}

// AdjustCoins изменяет баланс игрока и пишет строку истории.
// Обе записи в одной транзакции БД.
func (r *Repository) AdjustCoins(ctx context.Context, code string, delta int64, txType, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE players SET coins = coins + $2, updated_at = NOW() WHERE code = $1
	`, code, delta)
	if err != nil {
		return fmt.Errorf("ошибка изменения баланса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPlayerNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (to_code, amount, tx_type, description)
		VALUES ($1, $2, $3, $4)
	`, code, delta, txType, description)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	return tx.Commit(ctx)
}

// GetTransactions возвращает последние N операций игрока.
//
// Строка принадлежит ровно одному игроку: получателю (to_code), либо —
// для чистых списаний без получателя — отправителю. Строки сделок хранят
// подписанную дельту получателя, поэтому встречная строка той же сделки
// (с дельтой второго игрока) сюда не попадает.
func (r *Repository) GetTransactions(ctx context.Context, code string, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, from_code, to_code, amount, tx_type, description, created_at
		FROM transactions
		WHERE to_code = $1 OR (from_code = $1 AND to_code IS NULL)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, code, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FromCode, &t.ToCode, &t.Amount, &t.TxType, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
