package deposits

import "strings"

// Параметры рискованного вклада: с вероятностью riskyWinChance
// вкладчик получает +20%, иначе теряет 10%.
const (
	riskyWinChance = 0.40
	riskyWinPct    = 20
	riskyLossPct   = 10
)

// ParseType распознаёт тип вклада из текста команды.
func ParseType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "надежный", "надёжный", "safe":
		return TypeSafe, true
	case "рискованный", "рисковый", "risky":
		return TypeRisky, true
	}
	return "", false
}

// SafeProfit — фиксированная прибыль надёжного вклада. Целочисленное
// деление: дробная часть отбрасывается в пользу банка.
func SafeProfit(amount int64, ratePct int) int64 {
	return amount * int64(ratePct) / 100
}

// ComputeProfit считает прибыль вклада при закрытии. draw — случайное
// число из [0, 1); для надёжного типа не используется. Прибыль может
// быть отрицательной (рискованный проигрыш).
func ComputeProfit(depositType string, amount int64, safeRatePct int, draw float64) int64 {
	if depositType == TypeSafe {
		return SafeProfit(amount, safeRatePct)
	}
	if draw < riskyWinChance {
		return amount * riskyWinPct / 100
	}
	return -amount * riskyLossPct / 100
}
