// Package admin — repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active`

func scanSession(row pgx.Row) (*AdminSession, error) {
	var s AdminSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, session *AdminSession) error {
	query := `
		INSERT INTO admin_sessions (user_id, session_token, expires_at, is_active)
		VALUES ($1, $2, $3, TRUE)
	`
	_, err := r.db.Exec(ctx, query, session.UserID, session.SessionToken, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetActiveSession возвращает непросроченную сессию пользователя.
// Проверку бездействия (last_activity) выполняет сервис.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64) (*AdminSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM admin_sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1
	`
	s, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("активная сессия не найдена: %w", err)
	}
	return s, nil
}

// DeactivateSession деактивирует все сессии пользователя.
func (r *Repository) DeactivateSession(ctx context.Context, userID int64) error {
	query := `UPDATE admin_sessions SET is_active = FALSE WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// DeactivateStale гасит сессии, просроченные по expires_at либо
// брошенные без активности дольше idleLimit. Возвращает число погашенных.
func (r *Repository) DeactivateStale(ctx context.Context, idleLimit time.Duration) (int64, error) {
	query := `
		UPDATE admin_sessions
		SET is_active = FALSE
		WHERE is_active = TRUE AND (expires_at <= NOW() OR last_activity <= $1)
	`
	tag, err := r.db.Exec(ctx, query, time.Now().Add(-idleLimit))
	if err != nil {
		return 0, fmt.Errorf("ошибка деактивации погасших сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateActivity обновляет время последней активности.
func (r *Repository) UpdateActivity(ctx context.Context, userID int64) error {
	query := `UPDATE admin_sessions SET last_activity = NOW() WHERE user_id = $1 AND is_active = TRUE`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	query := `INSERT INTO admin_login_attempts (user_id, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, userID, success)
	return err
}

// GetRecentAttempts возвращает количество неудачных попыток за указанный период.
func (r *Repository) GetRecentAttempts(ctx context.Context, userID int64, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID, since).Scan(&count)
	return count, err
}

// PruneAttempts удаляет записи попыток входа старше retention.
func (r *Repository) PruneAttempts(ctx context.Context, retention time.Duration) error {
	query := `DELETE FROM admin_login_attempts WHERE attempt_time < $1`
	_, err := r.db.Exec(ctx, query, time.Now().Add(-retention))
	return err
}
