package deposits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeProfit(t *testing.T) {
	assert.Equal(t, int64(10), SafeProfit(100, 10))
	assert.Equal(t, int64(5), SafeProfit(50, 10))
	// Дробная часть отбрасывается
	assert.Equal(t, int64(0), SafeProfit(9, 10))
	assert.Equal(t, int64(1), SafeProfit(15, 10))
}

func TestComputeProfitSafeIgnoresDraw(t *testing.T) {
	assert.Equal(t, int64(10), ComputeProfit(TypeSafe, 100, 10, 0.01))
	assert.Equal(t, int64(10), ComputeProfit(TypeSafe, 100, 10, 0.99))
}

func TestComputeProfitRisky(t *testing.T) {
	// Повезло: бросок ниже порога 0.40 → +20%
	assert.Equal(t, int64(20), ComputeProfit(TypeRisky, 100, 10, 0.10))
	assert.Equal(t, int64(20), ComputeProfit(TypeRisky, 100, 10, 0.39))

	// Не повезло: бросок на пороге и выше → -10%
	assert.Equal(t, int64(-10), ComputeProfit(TypeRisky, 100, 10, 0.40))
	assert.Equal(t, int64(-10), ComputeProfit(TypeRisky, 100, 10, 0.95))
}

func TestRiskyLossPayout(t *testing.T) {
	// Вклад 100, проигрыш: на счёт возвращается 90
	amount := int64(100)
	profit := ComputeProfit(TypeRisky, amount, 10, 0.80)
	assert.Equal(t, int64(90), amount+profit)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"надёжный", TypeSafe, true},
		{"надежный", TypeSafe, true},
		{"safe", TypeSafe, true},
		{"рискованный", TypeRisky, true},
		{"рисковый", TypeRisky, true},
		{"risky", TypeRisky, true},
		{"РИСКОВАННЫЙ", TypeRisky, true},
		{"", "", false},
		{"золотой", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
