package risk

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/riskconfig"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func composite(dir contracts.Direction, conf float64) *contracts.CompositeSignal {
	comp := func(dir contracts.Direction) contracts.ComponentScore {
		return contracts.ComponentScore{Available: true, Direction: dir, Strength: conf, Confidence: conf}
	}
	return &contracts.CompositeSignal{
		Symbol:     "BTCUSDT",
		Timeframe:  contracts.Timeframe1h,
		AsOf:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Direction:  dir,
		Strength:   conf,
		Confidence: conf,
		OrderType:  contracts.OrderLimit,
		Volatility: contracts.VolatilityMedium,
		Exits: &contracts.ExitPlan{
			StopLossDistance:   0.02,
			TakeProfitDistance: 0.04,
			StopLossPrice:      98,
			TakeProfitPrice:    104,
		},
		Reasoning: contracts.Reasoning{
			Components: map[contracts.Source]contracts.ComponentScore{
				contracts.SourceTechnical:  comp(dir),
				contracts.SourceSentiment:  comp(dir),
				contracts.SourcePrediction: comp(dir),
			},
		},
	}
}

// snapshot with 10000 equity: cash on venues plus the given position notionals
func snapshot(positions ...contracts.Position) *contracts.PortfolioSnapshot {
	var invested float64
	for _, p := range positions {
		invested += p.Notional().InexactFloat64()
	}
	cash := 10000 - invested
	return &contracts.PortfolioSnapshot{
		Venues: []contracts.VenueAccount{
			{Name: "zeta", Connected: true, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(cash / 2)}},
			{Name: "alpha", Connected: true, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(cash / 2)}},
			{Name: "offline", Connected: false, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(0)}},
		},
		OpenPositions: positions,
	}
}

func position(symbol, sector string, notional float64) contracts.Position {
	return contracts.Position{Symbol: symbol, Sector: sector, Venue: "alpha", Quantity: d(1), MarkPrice: d(notional)}
}

func TestEvaluate_Approves(t *testing.T) {
	cfg := riskconfig.Default()
	engine := NewEngine(nil)

	a := engine.Evaluate(&cfg, Input{
		Symbol:   "BTCUSDT",
		Signal:   composite(contracts.DirectionBuy, 0.8),
		Snapshot: snapshot(),
		Market:   MarketConditions{RealizedVolatility: 0.2},
	})

	require.True(t, a.Approved, a.Reason)
	assert.Empty(t, a.Gate)
	assert.Equal(t, contracts.RiskLow, a.RiskLevel)
	assert.Greater(t, a.RecommendedSize, 0.0)
	assert.LessOrEqual(t, a.RecommendedSize, cfg.MaxPositionSize)
	// 0.05 × (0.2+0.64) × 0.8 × 1.0
	assert.InDelta(t, 0.0336, a.RecommendedSize, 1e-12)
	assert.InDelta(t, 336, a.TradeValue, 1e-9)
	assert.Equal(t, []string{"alpha", "zeta"}, a.ApprovedVenues)
	assert.InDelta(t, 0.8, a.SignalQuality, 1e-12)
	assert.Contains(t, a.Conditions, "stop-loss at 98.0000 (2.00%)")
}

func TestEvaluate_Gates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*riskconfig.Config, *Input)
		gate   contracts.Gate
		reason string
		level  contracts.RiskLevel
	}{
		{
			name:   "hold is not actionable",
			mutate: func(_ *riskconfig.Config, in *Input) { in.Signal.Direction = contracts.DirectionHold },
			gate:   contracts.GateActionable,
			reason: "no actionable signal",
		},
		{
			name:   "missing signal",
			mutate: func(_ *riskconfig.Config, in *Input) { in.Signal = nil },
			gate:   contracts.GateActionable,
		},
		{
			name:   "blocked symbol",
			mutate: func(c *riskconfig.Config, _ *Input) { c.BlockedSymbols = []string{"BTCUSDT"} },
			gate:   contracts.GateSymbol,
			reason: "symbol BTCUSDT is blocked",
		},
		{
			name:   "not in allow list",
			mutate: func(c *riskconfig.Config, _ *Input) { c.AllowedSymbols = []string{"ETHUSDT"} },
			gate:   contracts.GateSymbol,
		},
		{
			name: "extreme market",
			mutate: func(_ *riskconfig.Config, in *Input) {
				in.Market.RealizedVolatility = 0.5
				in.Market.LowLiquidity = true
			},
			gate:  contracts.GateMarket,
			level: contracts.RiskExtreme,
		},
		{
			name:   "missing snapshot",
			mutate: func(_ *riskconfig.Config, in *Input) { in.Snapshot = nil },
			gate:   contracts.GateExposure,
			reason: "portfolio snapshot unavailable",
		},
		{
			name:   "daily loss reached",
			mutate: func(_ *riskconfig.Config, in *Input) { in.Snapshot.DailyPnL = d(-250) },
			gate:   contracts.GateExposure,
			reason: "daily loss 2.5% reached limit 2.0%",
		},
		{
			name: "low signal quality",
			mutate: func(_ *riskconfig.Config, in *Input) {
				in.Signal = composite(contracts.DirectionBuy, 0.5)
			},
			gate:   contracts.GateSignalQuality,
			reason: "signal quality 0.50 below minimum 0.60",
		},
		{
			name: "no headroom",
			mutate: func(_ *riskconfig.Config, in *Input) {
				in.Snapshot = snapshot(position("BTCUSDT", "", 2000))
			},
			gate: contracts.GatePositionSize,
		},
		{
			name:   "trade value below minimum",
			mutate: func(c *riskconfig.Config, _ *Input) { c.MinTradeValue = 1000 },
			gate:   contracts.GatePositionSize,
			reason: "trade value 336.00 below minimum 1000.00",
		},
		{
			name: "no venue can fund",
			mutate: func(_ *riskconfig.Config, in *Input) {
				for i := range in.Snapshot.Venues {
					in.Snapshot.Venues[i].Connected = in.Snapshot.Venues[i].Name == "offline"
				}
			},
			gate: contracts.GateVenue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := riskconfig.Default()
			in := Input{
				Symbol:   "BTCUSDT",
				Signal:   composite(contracts.DirectionBuy, 0.8),
				Snapshot: snapshot(),
				Market:   MarketConditions{RealizedVolatility: 0.2},
			}
			tt.mutate(&cfg, &in)

			a := NewEngine(nil).Evaluate(&cfg, in)

			assert.False(t, a.Approved)
			assert.Equal(t, tt.gate, a.Gate)
			assert.Zero(t, a.RecommendedSize)
			assert.Empty(t, a.ApprovedVenues)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, a.Reason)
			}
			if tt.level != "" {
				assert.Equal(t, tt.level, a.RiskLevel)
			}
		})
	}
}

func TestEvaluate_TotalExposureRejects(t *testing.T) {
	cfg := riskconfig.Default()
	cfg.MaxAssetExposure = 1

	a := NewEngine(nil).Evaluate(&cfg, Input{
		Symbol:   "BTCUSDT",
		Signal:   composite(contracts.DirectionBuy, 0.8),
		Snapshot: snapshot(position("ETHUSDT", "", 8500)),
	})

	assert.False(t, a.Approved)
	assert.Equal(t, contracts.GateExposure, a.Gate)
	assert.Equal(t, "total exposure 85.0% exceeds limit 80.0%", a.Reason)
}

func TestEvaluate_CorrelatedExposureRejects(t *testing.T) {
	cfg := riskconfig.Default()

	a := NewEngine(nil).Evaluate(&cfg, Input{
		Symbol: "BTCUSDT",
		Signal: composite(contracts.DirectionBuy, 0.8),
		Snapshot: snapshot(
			position("ETHUSDT", "l1", 1200),
			position("SOLUSDT", "l1b", 1200),
			position("AVAXUSDT", "l1c", 1200),
		),
		Market: MarketConditions{
			Correlations: map[string]float64{"ETHUSDT": 0.8, "SOLUSDT": 0.8, "AVAXUSDT": -0.8},
		},
	})

	assert.False(t, a.Approved)
	assert.Equal(t, contracts.GateCorrelation, a.Gate)
	assert.Equal(t, contracts.RiskHigh, a.RiskLevel)
	assert.Equal(t, "correlated exposure 36.0% exceeds limit 30.0%", a.Reason)
}

func TestEvaluate_MediumCorrelationRaisesLevel(t *testing.T) {
	cfg := riskconfig.Default()

	a := NewEngine(nil).Evaluate(&cfg, Input{
		Symbol:   "BTCUSDT",
		Signal:   composite(contracts.DirectionSell, 0.8),
		Snapshot: snapshot(position("ETHUSDT", "", 1000), position("SOLUSDT", "", 1000)),
		Market:   MarketConditions{Correlations: map[string]float64{"ETHUSDT": 0.9, "SOLUSDT": 0.75}},
	})

	require.True(t, a.Approved, a.Reason)
	assert.Equal(t, contracts.RiskMedium, a.RiskLevel)
	assert.Contains(t, a.Conditions, "correlated exposure 20.0% (medium)")
}

func TestEvaluate_VaRCondition(t *testing.T) {
	cfg := riskconfig.Default()
	rets := make([]float64, 40)
	for i := range rets {
		rets[i] = 0.01 * float64(i%5-2)
	}

	a := NewEngine(nil).Evaluate(&cfg, Input{
		Symbol:   "BTCUSDT",
		Signal:   composite(contracts.DirectionBuy, 0.8),
		Snapshot: snapshot(),
		Market:   MarketConditions{Returns: rets},
	})

	require.True(t, a.Approved)
	assert.Contains(t, a.Conditions, "historical VaR95 2.00%, CVaR95 2.00% per bar")
}

func TestEvaluate_SizeWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	engine := NewEngine(nil)

	for i := 0; i < 500; i++ {
		cfg := riskconfig.Default()
		cfg.MinSignalQuality = 0
		cfg.UseKelly = rng.Intn(2) == 0
		cfg.MaxPositionSize = 0.01 + rng.Float64()*0.09

		conf := rng.Float64()
		a := engine.Evaluate(&cfg, Input{
			Symbol:   "BTCUSDT",
			Signal:   composite(contracts.DirectionBuy, conf),
			Snapshot: snapshot(position("ETHUSDT", "", rng.Float64()*9000)),
			Market:   MarketConditions{RealizedVolatility: rng.Float64() * 0.5},
		})

		assert.GreaterOrEqual(t, a.RecommendedSize, 0.0)
		assert.LessOrEqual(t, a.RecommendedSize, cfg.MaxPositionSize)
		if a.Approved {
			assert.Greater(t, a.RecommendedSize, 0.0)
			assert.NotEmpty(t, a.ApprovedVenues)
		}
	}
}

func TestMarketRisk(t *testing.T) {
	tests := []struct {
		name string
		m    MarketConditions
		want contracts.RiskLevel
	}{
		{"calm", MarketConditions{RealizedVolatility: 0.1}, contracts.RiskLow},
		{"elevated", MarketConditions{RealizedVolatility: 0.3}, contracts.RiskMedium},
		{"boundary stays low", MarketConditions{RealizedVolatility: 0.25}, contracts.RiskLow},
		{"high", MarketConditions{RealizedVolatility: 0.41}, contracts.RiskHigh},
		{"event lifts to high", MarketConditions{ScheduledEvents: []string{"FOMC"}}, contracts.RiskHigh},
		{"illiquid calm", MarketConditions{LowLiquidity: true}, contracts.RiskMedium},
		{"event and illiquid", MarketConditions{ScheduledEvents: []string{"CPI"}, LowLiquidity: true}, contracts.RiskExtreme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, _ := MarketRisk(tt.m)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestKellyFraction(t *testing.T) {
	assert.Zero(t, KellyFraction(0.9, 0, 0.05), "b = 0")
	assert.Zero(t, KellyFraction(0.9, -1, 0.05), "b < 0")
	assert.Zero(t, KellyFraction(0.2, 2, 0.05), "negative edge floors at 0")
	assert.InDelta(t, 0.05, KellyFraction(0.9, 2, 0.05), 1e-12, "capped")
	// (2·0.35 − 0.65)/2 = 0.025
	assert.InDelta(t, 0.025, KellyFraction(0.35, 2, 0.05), 1e-12)
}

func TestPositionSize_KellyBound(t *testing.T) {
	cfg := riskconfig.Default()
	cfg.UseKelly = true

	// kelly (2·0.34 − 0.66)/2 = 0.01 is below the base 0.05 × 0.472
	size, notes := PositionSize(&cfg, 0.34, 0, contracts.RiskLow, 1)
	assert.InDelta(t, 0.01, size, 1e-12)
	assert.Equal(t, []string{"kelly bound 1.00%"}, notes)

	size, _ = PositionSize(&cfg, 0.2, 0, contracts.RiskLow, 1)
	assert.Zero(t, size)
}

func TestPositionSize_LevelFactor(t *testing.T) {
	cfg := riskconfig.Default()

	low, _ := PositionSize(&cfg, 1, 0, contracts.RiskLow, 1)
	medium, _ := PositionSize(&cfg, 1, 0, contracts.RiskMedium, 1)
	high, _ := PositionSize(&cfg, 1, 0.9, contracts.RiskHigh, 1)

	assert.InDelta(t, 0.05, low, 1e-12)
	assert.InDelta(t, 0.035, medium, 1e-12)
	assert.InDelta(t, 0.05*0.3*0.5, high, 1e-12)
}

func TestCalculateVaR(t *testing.T) {
	assert.Zero(t, CalculateVaR(nil, 0.95).VaR)

	rets := []float64{-0.05, -0.03, -0.01, 0, 0.01, 0.02, 0.02, 0.03, 0.04, 0.05,
		0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01}
	v := CalculateVaR(rets, 0.95)
	// idx = floor(0.05·20) = 1 → sorted[1] = -0.03; tail mean of [-0.05, -0.03]
	assert.InDelta(t, 0.03, v.VaR, 1e-12)
	assert.InDelta(t, 0.04, v.CVaR, 1e-12)

	gains := CalculateVaR([]float64{0.01, 0.02}, 0.95)
	assert.Zero(t, gains.VaR)
	assert.Zero(t, gains.CVaR)
}

func TestPearsonCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1, PearsonCorrelation(a, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1, PearsonCorrelation(a, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.Zero(t, PearsonCorrelation(a, []float64{3, 3, 3, 3, 3}))
	assert.Zero(t, PearsonCorrelation(a, []float64{1, 2}))
}

func TestCorrelationsFromSeries(t *testing.T) {
	base := make([]float64, 40)
	mirror := make([]float64, 30)
	for i := range base {
		base[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	for i := range mirror {
		mirror[i] = 2 * base[i+10]
	}

	got := CorrelationsFromSeries(base, map[string][]float64{
		"MIRROR": mirror,
		"SHORT":  {1, 2, 3},
	})

	require.Contains(t, got, "MIRROR")
	assert.InDelta(t, 1, got["MIRROR"], 1e-9)
	assert.NotContains(t, got, "SHORT")
}

func TestEligibleVenues(t *testing.T) {
	venues := []contracts.VenueAccount{
		{Name: "b", Connected: true, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(100)}},
		{Name: "a", Connected: true, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(500)}},
		{Name: "c", Connected: false, QuoteCurrency: "USDT", Balances: map[string]decimal.Decimal{"USDT": d(900)}},
		{Name: "d", Connected: true, QuoteCurrency: "USD"},
	}

	assert.Equal(t, []string{"a", "b"}, EligibleVenues(venues, 100))
	assert.Equal(t, []string{"a"}, EligibleVenues(venues, 200))
	assert.Empty(t, EligibleVenues(venues, 1000))
}
