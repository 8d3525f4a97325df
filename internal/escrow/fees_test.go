package escrow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		feeBps  uint32
		wantFee int64
		wantNet int64
	}{
		{name: "250 bps", amount: 1000, feeBps: 250, wantFee: 25, wantNet: 975},
		{name: "250 bps rounds down", amount: 500, feeBps: 250, wantFee: 12, wantNet: 488},
		{name: "500 bps", amount: 500, feeBps: 500, wantFee: 25, wantNet: 475},
		{name: "rounds down", amount: 999, feeBps: 250, wantFee: 24, wantNet: 975},
		{name: "zero fee", amount: 1000, feeBps: 0, wantFee: 0, wantNet: 1000},
		{name: "max fee", amount: 1000, feeBps: 1000, wantFee: 100, wantNet: 900},
		{name: "tiny amount", amount: 1, feeBps: 250, wantFee: 0, wantNet: 1},
		{name: "zero amount", amount: 0, feeBps: 250, wantFee: 0, wantNet: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := big.NewInt(tt.amount)
			fee := Fee(amount, tt.feeBps)
			net := NetPayout(amount, tt.feeBps)

			require.Equal(t, tt.wantFee, fee.Int64())
			require.Equal(t, tt.wantNet, net.Int64())

			require.True(t, fee.Sign() >= 0, "fee is never negative")
			require.True(t, fee.Cmp(amount) <= 0 || amount.Sign() == 0, "fee never exceeds amount")
			require.Equal(t, tt.amount, new(big.Int).Add(fee, net).Int64(), "fee + net covers the full amount")
		})
	}
}

func TestRequiredDeposit(t *testing.T) {
	require.Equal(t, int64(512), RequiredDeposit(big.NewInt(500), 250).Int64())
	require.Equal(t, int64(525), RequiredDeposit(big.NewInt(500), 500).Int64())
	require.Equal(t, int64(1025), RequiredDeposit(big.NewInt(1000), 250).Int64())
	require.Equal(t, int64(500), RequiredDeposit(big.NewInt(500), 0).Int64())
}

func TestValidateFeeBps(t *testing.T) {
	require.NoError(t, ValidateFeeBps(0))
	require.NoError(t, ValidateFeeBps(1000))
	require.ErrorIs(t, ValidateFeeBps(1001), ErrFeeTooHigh)
}
