// Package shop — models.go описывает товары и заказы магазина.
package shop

import "time"

// Product — позиция классного магазина.
type Product struct {
	ID     int64
	Title  string
	Price  int64
	Active bool
}

// Статусы заказа. Заказ терминален после confirmed или cancelled;
// отмена возвращает стоимость на баланс игрока.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
)

// Order — заказ игрока, ожидающий решения администратора.
// Стоимость списывается при покупке, поэтому отмена делает возврат.
type Order struct {
	ID           int64
	PlayerCode   string
	ProductID    int64
	ProductTitle string
	Quantity     int
	Total        int64
	Status       string
	AdminNote    *string
	ConfirmedBy  *int64 // Telegram ID администратора
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
