package deals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMatrix(t *testing.T) {
	cases := []struct {
		name        string
		initiator   Choice
		counterpart Choice
		wantInit    int64
		wantCounter int64
	}{
		{"честно против честно", ChoiceCooperate, ChoiceCooperate, 2, 2},
		{"честно против обмана", ChoiceCooperate, ChoiceCheat, -1, 3},
		{"обман против честно", ChoiceCheat, ChoiceCooperate, 3, -1},
		{"обман против обмана", ChoiceCheat, ChoiceCheat, -1, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Resolve(tc.initiator, tc.counterpart)
			assert.Equal(t, tc.wantInit, p.Initiator)
			assert.Equal(t, tc.wantCounter, p.Counterpart)
		})
	}
}

// Сумма выплат отрицательна только при взаимном обмане,
// положительна только при взаимной честности.
func TestResolveSums(t *testing.T) {
	choices := []Choice{ChoiceCooperate, ChoiceCheat}
	for _, a := range choices {
		for _, b := range choices {
			p := Resolve(a, b)
			total := p.Initiator + p.Counterpart

			switch {
			case a == ChoiceCooperate && b == ChoiceCooperate:
				assert.Equal(t, int64(4), total)
			case a == ChoiceCheat && b == ChoiceCheat:
				assert.Equal(t, int64(-2), total)
			default:
				assert.Equal(t, int64(2), total)
			}
		}
	}
}

func TestCanDeal(t *testing.T) {
	const limit = 5

	// Все разбиения суммарного счёта 0..10 на исходящие/входящие
	for total := 0; total <= 10; total++ {
		for out := 0; out <= total; out++ {
			in := total - out
			want := total < limit
			assert.Equal(t, want, CanDeal(out, in, limit),
				"outgoing=%d incoming=%d", out, in)
		}
	}
}

// Сценарий из жизни: A (100 монет) предлагает честность, B (100 монет)
// отвечает обманом — A остаётся с 99, B получает 103.
func TestScenarioCooperateAgainstCheat(t *testing.T) {
	var balanceA, balanceB int64 = 100, 100

	p := Resolve(ChoiceCooperate, ChoiceCheat)
	balanceA += p.Initiator
	balanceB += p.Counterpart

	assert.Equal(t, int64(99), balanceA)
	assert.Equal(t, int64(103), balanceB)
}

func TestParseChoice(t *testing.T) {
	cases := map[string]Choice{
		"честно":    ChoiceCooperate,
		"обман":     ChoiceCheat,
		"cooperate": ChoiceCooperate,
		"cheat":     ChoiceCheat,
	}
	for in, want := range cases {
		got, ok := ParseChoice(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseChoice("ничья")
	assert.False(t, ok)
}
