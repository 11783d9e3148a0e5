package players

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestTransactionSignedAmount(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		self string
		want int64
	}{
		{
			name: "сделка: мы получатель, отрицательная дельта",
			tx:   Transaction{FromCode: strPtr("BBB22"), ToCode: strPtr("AAA11"), Amount: -1, TxType: TxDeal},
			self: "AAA11",
			want: -1,
		},
		{
			name: "сделка: мы получатель, положительная дельта",
			tx:   Transaction{FromCode: strPtr("AAA11"), ToCode: strPtr("BBB22"), Amount: 3, TxType: TxDeal},
			self: "BBB22",
			want: 3,
		},
		{
			name: "покупка: списание без получателя",
			tx:   Transaction{FromCode: strPtr("AAA11"), ToCode: nil, Amount: 50, TxType: TxPurchase},
			self: "AAA11",
			want: -50,
		},
		{
			name: "возврат за заказ",
			tx:   Transaction{FromCode: nil, ToCode: strPtr("AAA11"), Amount: 120, TxType: TxRefund},
			self: "AAA11",
			want: 120,
		},
		{
			name: "открытие вклада",
			tx:   Transaction{FromCode: strPtr("AAA11"), ToCode: nil, Amount: 100, TxType: TxDeposit},
			self: "AAA11",
			want: -100,
		},
		{
			name: "выплата по вкладу",
			tx:   Transaction{FromCode: nil, ToCode: strPtr("AAA11"), Amount: 90, TxType: TxDepositPayout},
			self: "AAA11",
			want: 90,
		},
		{
			name: "начисление администратора со знаком",
			tx:   Transaction{FromCode: nil, ToCode: strPtr("AAA11"), Amount: -20, TxType: TxAdminGrant},
			self: "AAA11",
			want: -20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.SignedAmount(tt.self))
		})
	}
}

// Исход «честно против обмана»: каждому игроку принадлежит ровно одна
// строка сделки с его собственной дельтой, и она не меняет знак.
func TestTransactionSignedAmountDealRowsIndependent(t *testing.T) {
	rowA := Transaction{FromCode: strPtr("BBB22"), ToCode: strPtr("AAA11"), Amount: -1, TxType: TxDeal}
	rowB := Transaction{FromCode: strPtr("AAA11"), ToCode: strPtr("BBB22"), Amount: 3, TxType: TxDeal}

	assert.Equal(t, int64(-1), rowA.SignedAmount("AAA11"))
	assert.Equal(t, int64(3), rowB.SignedAmount("BBB22"))
}
