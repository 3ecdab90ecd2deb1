package feegrowth

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Delta returns end - start over the 256-bit counter ring. Counters
// accumulate forever and may wrap, so the subtraction is modular.
func Delta(start, end *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(end, start)
}

// FeeAmount de-scales a fee-growth delta into a token amount:
// liquidity * delta / 2^128, truncating. Residue is deliberately
// dropped; the protocol under-credits rather than over-credits.
func FeeAmount(liquidity *big.Int, delta *uint256.Int) *big.Int {
	amount := new(big.Int).Mul(liquidity, delta.ToBig())
	return amount.Rsh(amount, 128)
}
