package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/riskconfig"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func sampleSnapshot() contracts.PortfolioSnapshot {
	return contracts.PortfolioSnapshot{
		Venues: []contracts.VenueAccount{
			{Name: "alpha", Connected: true, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(6000)}},
			{Name: "beta", Connected: false, QuoteCurrency: "USD", Balances: map[string]decimal.Decimal{"USD": d(1000)}},
		},
		OpenPositions: []contracts.Position{
			{Symbol: "btcusdt", Sector: "layer1", Venue: "alpha", Quantity: d(0.02), MarkPrice: d(50000)},
			{Symbol: "ETHUSDT", Sector: "layer1", Venue: "alpha", Quantity: d(-0.5), MarkPrice: d(2000)},
		},
		DailyPnL: d(-100),
	}
}

func TestComputeExposure(t *testing.T) {
	exp := ComputeExposure(sampleSnapshot())

	// cash 7000 + |1000| + |-1000| = 9000
	assert.InDelta(t, 9000, exp.Equity, 1e-9)
	assert.InDelta(t, 2000.0/9000, exp.TotalFraction, 1e-12)
	assert.InDelta(t, 1000.0/9000, exp.ByAsset["BTCUSDT"], 1e-12)
	assert.InDelta(t, 1000.0/9000, exp.ByAsset["ETHUSDT"], 1e-12, "shorts count by absolute notional")
	assert.InDelta(t, 2000.0/9000, exp.BySector["layer1"], 1e-12)
	assert.InDelta(t, -100.0/9000, exp.DailyPnLFraction, 1e-12)
}

func TestComputeExposure_ZeroEquity(t *testing.T) {
	exp := ComputeExposure(contracts.PortfolioSnapshot{})

	assert.Zero(t, exp.Equity)
	assert.Zero(t, exp.TotalFraction)
	assert.Zero(t, exp.DailyPnLFraction)
	assert.NotNil(t, exp.ByAsset)
}

func TestLimits_Breach(t *testing.T) {
	cfg := riskconfig.Default()
	limits := LimitsFrom(&cfg)

	tests := []struct {
		name     string
		exp      contracts.PortfolioExposure
		sector   string
		want     string
		breached bool
	}{
		{
			name:     "total over cap",
			exp:      contracts.PortfolioExposure{TotalFraction: 0.85},
			want:     "total exposure 85.0% exceeds limit 80.0%",
			breached: true,
		},
		{
			name:     "asset over cap",
			exp:      contracts.PortfolioExposure{TotalFraction: 0.5, ByAsset: map[string]float64{"BTCUSDT": 0.25}},
			want:     "asset BTCUSDT exposure 25.0% exceeds limit 20.0%",
			breached: true,
		},
		{
			name:     "sector over cap",
			exp:      contracts.PortfolioExposure{TotalFraction: 0.5, BySector: map[string]float64{"layer1": 0.31}},
			sector:   "layer1",
			want:     "sector layer1 exposure 31.0% exceeds limit 30.0%",
			breached: true,
		},
		{
			name: "at the cap is fine",
			exp:  contracts.PortfolioExposure{TotalFraction: 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, breached := limits.Breach(tt.exp, "btcusdt", tt.sector)
			assert.Equal(t, tt.breached, breached)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestLimits_Headroom(t *testing.T) {
	limits := Limits{MaxTotal: 0.8, MaxAsset: 0.2, MaxSector: 0.3}
	exp := contracts.PortfolioExposure{
		TotalFraction: 0.5,
		ByAsset:       map[string]float64{"BTCUSDT": 0.17},
		BySector:      map[string]float64{"layer1": 0.28},
	}

	require.InDelta(t, 0.02, limits.Headroom(exp, "BTCUSDT", "layer1"), 1e-12)
	require.InDelta(t, 0.03, limits.Headroom(exp, "BTCUSDT", ""), 1e-12)
	require.InDelta(t, 0.2, limits.Headroom(exp, "SOLUSDT", ""), 1e-12)

	exp.TotalFraction = 0.9
	require.Zero(t, limits.Headroom(exp, "SOLUSDT", ""))
}
