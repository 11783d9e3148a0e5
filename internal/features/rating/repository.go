// Package rating — repository.go читает авторитетный рейтинг из Postgres.
package rating

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry — строка таблицы лидеров.
type Entry struct {
	Code        string
	DisplayName string
	ClassName   string
	Coins       int64
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Top возвращает первых limit игроков по убыванию баланса.
func (r *Repository) Top(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT code, display_name, class_name, coins
		FROM players
		ORDER BY coins DESC, display_name
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рейтинга: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.DisplayName, &e.ClassName, &e.Coins); err != nil {
			return nil, fmt.Errorf("ошибка сканирования рейтинга: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetEntries возвращает строки рейтинга для заданных кодов.
func (r *Repository) GetEntries(ctx context.Context, codes []string) (map[string]Entry, error) {
	query := `
		SELECT code, display_name, class_name, coins
		FROM players
		WHERE code = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения игроков рейтинга: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry, len(codes))
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Code, &e.DisplayName, &e.ClassName, &e.Coins); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out[e.Code] = e
	}
	return out, rows.Err()
}
