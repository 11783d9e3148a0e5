// Package deals — models.go описывает сделку «дилеммы заключённого».
package deals

import (
	"time"

	"github.com/google/uuid"
)

// Choice — стратегический выбор стороны сделки.
type Choice string

const (
	ChoiceCooperate Choice = "cooperate"
	ChoiceCheat     Choice = "cheat"
)

// ParseChoice разбирает выбор из текста команды.
// Принимает русские слова и служебные значения callback-данных.
func ParseChoice(s string) (Choice, bool) {
	switch s {
	case "честно", "сотрудничать", string(ChoiceCooperate):
		return ChoiceCooperate, true
	case "обман", "обмануть", string(ChoiceCheat):
		return ChoiceCheat, true
	}
	return "", false
}

// Russian возвращает русское название выбора для сообщений.
func (c Choice) Russian() string {
	if c == ChoiceCooperate {
		return "честно"
	}
	return "обман"
}

// Статусы сделки. Сделка терминальна после completed или cancelled.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Deal — парная сделка между инициатором и вторым игроком.
// Выбор инициатора фиксируется при создании; выбор второго игрока
// появляется при ответе или подставляется по таймауту.
type Deal struct {
	ID                uuid.UUID
	InitiatorCode     string
	CounterpartCode   string
	InitiatorChoice   Choice
	CounterpartChoice *Choice // nil, пока нет ответа
	Status            string
	InitiatorDelta    int64
	CounterpartDelta  int64
	CreatedAt         time.Time
	ResolvedAt        *time.Time
}

// Resolved сообщает, завершена ли сделка.
func (d *Deal) Resolved() bool {
	return d.Status != StatusPending
}
