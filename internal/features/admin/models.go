// Package admin реализует админ-панель с парольной аутентификацией:
// подтверждение и отмена заказов магазина, начисление монет игрокам.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// IdleExpired сообщает, погасла ли сессия из-за бездействия:
// с последней активности прошло больше idleLimit.
func (s *AdminSession) IdleExpired(now time.Time, idleLimit time.Duration) bool {
	return now.Sub(s.LastActivity) > idleLimit
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Отмена заказа идёт по шагам: команда → ввод причины.
type AdminState struct {
	State     string      // Текущее состояние ("", "awaiting_password", ...)
	Data      interface{} // Данные контекста (номер отменяемого заказа)
	ExpiresAt time.Time   // Когда состояние истекает (5 минут)
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""                   // Нет активного состояния
	StateAwaitingPassword = "awaiting_password"  // Ждём пароль
	StateCancelReason     = "cancel_reason"      // Ждём причину отмены заказа
)
