package market

import "math/big"

// OddsBasis is the basis-point denominator: yes + no odds always sum to it.
const OddsBasis = 10000

// Odds are implied probabilities in basis points derived from pool totals.
type Odds struct {
	Yes uint64 `json:"yes"`
	No  uint64 `json:"no"`
}

// ComputeOdds derives implied probabilities from pool totals. An empty pool
// reports 5000/5000 rather than dividing by zero. Both sides are derived from
// a single division each and the rounding remainder is added to the smaller
// side, so Yes+No == OddsBasis holds exactly for every input.
func ComputeOdds(yesTotal, noTotal uint64) Odds {
	total := yesTotal + noTotal
	if total == 0 {
		return Odds{Yes: OddsBasis / 2, No: OddsBasis / 2}
	}
	if total < yesTotal {
		// uint64 sum wrapped; fall back to big-int arithmetic throughout.
		return computeOddsBig(yesTotal, noTotal)
	}

	yes := mulDiv(yesTotal, OddsBasis, total)
	no := mulDiv(noTotal, OddsBasis, total)

	remainder := OddsBasis - yes - no
	if yes <= no {
		yes += remainder
	} else {
		no += remainder
	}

	return Odds{Yes: yes, No: no}
}

// computeOddsBig handles pool totals whose sum exceeds uint64.
func computeOddsBig(yesTotal, noTotal uint64) Odds {
	total := new(big.Int).Add(new(big.Int).SetUint64(yesTotal), new(big.Int).SetUint64(noTotal))
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(yesTotal), big.NewInt(OddsBasis))
	yes := scaled.Div(scaled, total).Uint64()
	scaled = new(big.Int).Mul(new(big.Int).SetUint64(noTotal), big.NewInt(OddsBasis))
	no := scaled.Div(scaled, total).Uint64()

	remainder := OddsBasis - yes - no
	if yes <= no {
		yes += remainder
	} else {
		no += remainder
	}
	return Odds{Yes: yes, No: no}
}
