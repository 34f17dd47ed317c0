package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradegate/internal/contracts"
)

// ComputeExposure derives equity fractions from a snapshot.
// Equity is the sum of quote balances across venues plus the absolute
// notional of every open position. Zero or negative equity yields zero fractions.
func ComputeExposure(snap contracts.PortfolioSnapshot) contracts.PortfolioExposure {
	cash := decimal.Zero
	for _, v := range snap.Venues {
		cash = cash.Add(v.QuoteBalance())
	}

	invested := decimal.Zero
	byAsset := make(map[string]decimal.Decimal)
	bySector := make(map[string]decimal.Decimal)
	for _, p := range snap.OpenPositions {
		n := p.Notional()
		invested = invested.Add(n)

		asset := strings.ToUpper(p.Symbol)
		byAsset[asset] = byAsset[asset].Add(n)
		if p.Sector != "" {
			bySector[p.Sector] = bySector[p.Sector].Add(n)
		}
	}

	equity := cash.Add(invested)
	exp := contracts.PortfolioExposure{
		Equity:   equity.InexactFloat64(),
		ByAsset:  make(map[string]float64, len(byAsset)),
		BySector: make(map[string]float64, len(bySector)),
	}

	if !equity.IsPositive() {
		exp.Equity = 0
		for k := range byAsset {
			exp.ByAsset[k] = 0
		}
		for k := range bySector {
			exp.BySector[k] = 0
		}
		return exp
	}

	exp.TotalFraction = fraction(invested, equity)
	exp.DailyPnLFraction = fraction(snap.DailyPnL, equity)
	for k, v := range byAsset {
		exp.ByAsset[k] = fraction(v, equity)
	}
	for k, v := range bySector {
		exp.BySector[k] = fraction(v, equity)
	}

	return exp
}

func fraction(part, whole decimal.Decimal) float64 {
	return part.Div(whole).InexactFloat64()
}
