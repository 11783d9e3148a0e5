// Package players — models.go описывает структуры игрока и транзакции.
package players

import "time"

// Player — участник игры. Идентичность игрока — короткий код,
// который учитель раздаёт перед игрой; Telegram-аккаунт привязывается
// к коду при входе и отвязывается при выходе.
type Player struct {
	ID             int64
	Code           string
	TelegramUserID *int64 // nil, пока игрок не вошёл
	Username       *string
	DisplayName    string
	ClassName      string
	Color          string
	Coins          int64
	TotalDeals     int
	LastActive     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LoggedIn сообщает, привязан ли код к Telegram-аккаунту.
func (p *Player) LoggedIn() bool {
	return p.TelegramUserID != nil
}

// Transaction — строка истории операций с монетами.
// FromCode/ToCode могут быть nil: начисления системы (вклады, админ)
// не имеют отправителя.
type Transaction struct {
	ID          int64
	FromCode    *string
	ToCode      *string
	Amount      int64
	TxType      string
	Description string
	CreatedAt   time.Time
}

// SignedAmount возвращает изменение баланса игрока selfCode этой строкой.
// Строки с получателем хранят его подписанную дельту как есть; списания
// без получателя (покупка, открытие вклада) показываются с минусом.
func (t *Transaction) SignedAmount(selfCode string) int64 {
	if t.ToCode != nil && *t.ToCode == selfCode {
		return t.Amount
	}
	if t.FromCode != nil && *t.FromCode == selfCode {
		return -t.Amount
	}
	return t.Amount
}

// Типы транзакций.
const (
	TxDeal          = "deal"
	TxPurchase      = "purchase"
	TxRefund        = "refund"
	TxDeposit       = "deposit"
	TxDepositPayout = "deposit_payout"
	TxAdminGrant    = "admin_grant"
)
