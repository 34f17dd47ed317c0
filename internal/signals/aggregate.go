package signals

import (
	"fmt"

	"github.com/wonny/tradegate/internal/contracts"
)

// Aggregate buckets per-indicator signals into BUY/SELL/HOLD (NEUTRAL counts as
// HOLD) and sums strength per bucket. The strictly largest bucket wins and a
// tie resolves to HOLD. Confidence is the winner's share of the total strength,
// strength is the winner's mean strength. ok is false when nothing contributed.
func Aggregate(components []contracts.Signal) (contracts.Signal, bool) {
	if len(components) == 0 {
		return contracts.NewSignal(string(contracts.SourceTechnical), contracts.DirectionHold, 0, 0, "no indicator available"), false
	}

	sums := map[contracts.Direction]float64{}
	counts := map[contracts.Direction]int{}
	var total float64
	for _, s := range components {
		b := s.Direction.Bucket()
		sums[b] += s.Strength
		counts[b]++
		total += s.Strength
	}

	winner := contracts.DirectionHold
	buy, sell, hold := sums[contracts.DirectionBuy], sums[contracts.DirectionSell], sums[contracts.DirectionHold]
	switch {
	case buy > sell && buy > hold:
		winner = contracts.DirectionBuy
	case sell > buy && sell > hold:
		winner = contracts.DirectionSell
	}

	var confidence, strength float64
	if total > 0 {
		confidence = sums[winner] / total
	}
	if counts[winner] > 0 {
		strength = sums[winner] / float64(counts[winner])
	}

	reason := fmt.Sprintf("buy=%.2f sell=%.2f hold=%.2f over %d indicators", buy, sell, hold, len(components))
	return contracts.NewSignal(string(contracts.SourceTechnical), winner, strength, confidence, reason).
		WithMeta("buy_sum", buy).
		WithMeta("sell_sum", sell).
		WithMeta("hold_sum", hold), true
}
