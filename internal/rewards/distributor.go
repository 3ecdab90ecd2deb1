package rewards

import (
	"math/big"

	"github.com/Telcoin-Association/telcoin-application-network-issuance-sub000/internal/domain"
)

// Distribute allocates totalReward pro-rata to each LP's
// denominator-currency fee share, filling the Reward field. Division
// truncates and the remainder is not redistributed, so the allocated
// sum may fall short of totalReward but never exceeds it.
func Distribute(lp domain.LPMap, totalReward *big.Int) {
	total := new(big.Int)
	for _, data := range lp {
		total.Add(total, data.FeesDenominator)
	}

	for _, data := range lp {
		r := new(big.Int)
		if total.Sign() > 0 {
			r.Mul(data.FeesDenominator, totalReward)
			r.Div(r, total)
		}
		data.Reward = r
	}
}
