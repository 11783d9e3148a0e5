// Package deals — payoff.go реализует матрицу выплат «дилеммы заключённого».
//
// Каноническая матрица (инициатор / второй игрок):
//
//	честно + честно → +2 / +2
//	честно + обман  → −1 / +3
//	обман  + честно → +3 / −1
//	обман  + обман  → −1 / −1
package deals

// Payoff — подписанные изменения балансов сторон после сделки.
type Payoff struct {
	Initiator   int64
	Counterpart int64
}

// Resolve отображает пару выборов в выплаты. Чистая функция.
func Resolve(initiator, counterpart Choice) Payoff {
	switch {
	case initiator == ChoiceCooperate && counterpart == ChoiceCooperate:
		return Payoff{Initiator: 2, Counterpart: 2}
	case initiator == ChoiceCooperate && counterpart == ChoiceCheat:
		return Payoff{Initiator: -1, Counterpart: 3}
	case initiator == ChoiceCheat && counterpart == ChoiceCooperate:
		return Payoff{Initiator: 3, Counterpart: -1}
	default: // обман + обман
		return Payoff{Initiator: -1, Counterpart: -1}
	}
}

// CanDeal сообщает, можно ли открыть новую сделку в паре:
// суммарное число сделок в обе стороны должно быть меньше лимита.
func CanDeal(outgoing, incoming, limit int) bool {
	return outgoing+incoming < limit
}
