package escrow

import "math/big"

// MaxFeeBps caps the platform fee at 10%
const MaxFeeBps = 1000

const bpsDenominator = 10_000

// ValidateFeeBps rejects fee rates above the platform cap
func ValidateFeeBps(feeBps uint32) error {
	if feeBps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	return nil
}

// Fee computes floor(amount * feeBps / 10000). Integer arithmetic only, so
// the replica never drifts from the ledger contract by rounding.
func Fee(amount *big.Int, feeBps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(feeBps)))
	return fee.Div(fee, big.NewInt(bpsDenominator))
}

// NetPayout is the amount the freelancer receives after the platform fee
func NetPayout(amount *big.Int, feeBps uint32) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(amount, Fee(amount, feeBps))
}

// RequiredDeposit is the amount the client escrows: the job total plus the
// platform fee on top of it
func RequiredDeposit(totalAmount *big.Int, feeBps uint32) *big.Int {
	if totalAmount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Add(totalAmount, Fee(totalAmount, feeBps))
}
