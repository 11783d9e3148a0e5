// Package deposits реализует вклады: игрок замораживает монеты на срок
// и получает их назад с фиксированной или случайной прибылью.
package deposits

import "time"

// Типы вкладов.
const (
	TypeSafe  = "safe"  // фиксированный процент
	TypeRisky = "risky" // лотерея: крупный выигрыш или убыток
)

// Статусы вкладов.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Deposit — вклад игрока. ExpectedProfit известен при открытии только
// для надёжного типа; ActualProfit заполняется при закрытии.
type Deposit struct {
	ID             int64
	PlayerCode     string
	Amount         int64
	Type           string
	ExpectedProfit *int64
	ActualProfit   *int64
	StartTime      time.Time
	EndTime        time.Time
	Status         string
}

// Active сообщает, ждёт ли вклад закрытия.
func (d *Deposit) Active() bool {
	return d.Status == StatusActive
}

// TypeRussian возвращает название типа для сообщений.
func (d *Deposit) TypeRussian() string {
	if d.Type == TypeSafe {
		return "надёжный"
	}
	return "рискованный"
}
