package evaluator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/providers"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/pkg/logger"
)

type fixedPredictor struct {
	p   contracts.Prediction
	err error
}

func (f fixedPredictor) Name() string { return "fixed" }

func (f fixedPredictor) Predict(context.Context, contracts.Features, string) (contracts.Prediction, error) {
	return f.p, f.err
}

// stuckSentiment ignores its context and blocks until released
type stuckSentiment struct {
	release chan struct{}
}

func (s stuckSentiment) Name() string { return "stuck" }

func (s stuckSentiment) Sentiment(context.Context, string) (contracts.SentimentReading, error) {
	<-s.release
	return contracts.SentimentReading{Score: 1, Confidence: 1}, nil
}

func risingSeries(n int) *contracts.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = contracts.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return &contracts.PriceSeries{Symbol: "BTCUSDT", Timeframe: contracts.Timeframe1h, Bars: bars}
}

func cashSnapshot(positions ...contracts.Position) *contracts.PortfolioSnapshot {
	invested := decimal.Zero
	for _, p := range positions {
		invested = invested.Add(p.Notional())
	}
	return &contracts.PortfolioSnapshot{
		Venues: []contracts.VenueAccount{{
			Name:          "alpha",
			Connected:     true,
			QuoteCurrency: "USDT",
			Balances:      map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10000).Sub(invested)},
		}},
		OpenPositions: positions,
	}
}

func sellHeavyConfig() riskconfig.Config {
	cfg := riskconfig.Default()
	cfg.Weights = riskconfig.Weights{Technical: 0.2, Sentiment: 0.4, Prediction: 0.4}
	return cfg
}

func bearishEvaluator() *Evaluator {
	return New(logger.Nop(),
		WithSentiment(providers.StaticSentiment{Reading: contracts.SentimentReading{Score: -1, Confidence: 1}}),
		WithPrediction(fixedPredictor{p: contracts.Prediction{Direction: "SELL", Confidence: 1, Volatility: contracts.VolatilityLow}}),
	)
}

func TestEvaluate_InvalidConfigIsFatal(t *testing.T) {
	cfg := riskconfig.Default()
	cfg.MaxPositionSize = 0.5
	cfg.Weights.Technical = 0.9

	composite, assessment, err := New(nil).Evaluate(context.Background(), Request{
		Symbol: "BTCUSDT",
		Series: risingSeries(60),
		Config: cfg,
	})

	require.Error(t, err)
	assert.Nil(t, composite)
	assert.Nil(t, assessment)

	var cfgErr *riskconfig.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Has("max_position_size"))
	assert.True(t, cfgErr.Has("weights"))
}

func TestEvaluate_Approved(t *testing.T) {
	series := risingSeries(120)

	composite, assessment, err := bearishEvaluator().Evaluate(context.Background(), Request{
		Symbol:   "BTCUSDT",
		Series:   series,
		Snapshot: cashSnapshot(),
		Config:   sellHeavyConfig(),
	})

	require.NoError(t, err)
	assert.Equal(t, contracts.DirectionSell, composite.Direction)
	assert.Equal(t, series.Last().Time, composite.AsOf)
	assert.Equal(t, contracts.VolatilityLow, composite.Volatility)
	require.NotNil(t, composite.Exits)
	assert.Greater(t, composite.Exits.StopLossPrice, series.Last().Close)

	assert.True(t, assessment.Approved, assessment.Reason)
	assert.Greater(t, assessment.RecommendedSize, 0.0)
	assert.LessOrEqual(t, assessment.RecommendedSize, 0.05)
	assert.Equal(t, []string{"alpha"}, assessment.ApprovedVenues)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := bearishEvaluator()
	req := Request{
		Symbol:   "BTCUSDT",
		Series:   risingSeries(120),
		Snapshot: cashSnapshot(),
		Config:   sellHeavyConfig(),
		Market:   MarketContext{ScheduledEvents: []string{"CPI"}},
	}

	c1, a1, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	c2, a2, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
	assert.Equal(t, a1, a2)
}

func TestEvaluate_InvalidSeriesDegrades(t *testing.T) {
	series := risingSeries(30)
	series.Bars[10].Time = series.Bars[9].Time

	composite, assessment, err := New(nil).Evaluate(context.Background(), Request{
		Symbol:   "BTCUSDT",
		Series:   series,
		Snapshot: cashSnapshot(),
		Config:   riskconfig.Default(),
	})

	require.NoError(t, err)
	assert.Equal(t, contracts.DirectionHold, composite.Direction)
	assert.False(t, composite.Reasoning.Components[contracts.SourceTechnical].Available)
	assert.InDelta(t, 1.0, composite.Reasoning.UnusedWeight, 1e-12)
	assert.False(t, assessment.Approved)
	assert.Equal(t, contracts.GateActionable, assessment.Gate)
	require.NotEmpty(t, assessment.Conditions)
	assert.Contains(t, assessment.Conditions[0], "technical unavailable")
}

func TestEvaluate_MissingSeries(t *testing.T) {
	composite, assessment, err := New(nil).Evaluate(context.Background(), Request{
		Symbol: "BTCUSDT",
		Config: riskconfig.Default(),
	})

	require.NoError(t, err)
	assert.Equal(t, contracts.DirectionHold, composite.Direction)
	assert.True(t, composite.AsOf.IsZero())
	assert.False(t, assessment.Approved)
}

func TestEvaluate_CollaboratorTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cfg := riskconfig.Default()
	cfg.CollaboratorTimeoutMS = 50

	e := New(nil,
		WithSentiment(stuckSentiment{release: release}),
		WithPrediction(fixedPredictor{err: errors.New("model offline")}),
	)

	started := time.Now()
	composite, assessment, err := e.Evaluate(context.Background(), Request{
		Symbol: "BTCUSDT",
		Series: risingSeries(120),
		Config: cfg,
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.False(t, composite.Reasoning.Components[contracts.SourceSentiment].Available)
	assert.False(t, composite.Reasoning.Components[contracts.SourcePrediction].Available)
	assert.True(t, composite.Reasoning.Components[contracts.SourceTechnical].Available)
	assert.Contains(t, assessment.Conditions, "prediction unavailable: model offline")
}

func TestEvaluate_DerivedCorrelationRejects(t *testing.T) {
	series := risingSeries(120)
	peer := make([]float64, len(series.Bars))
	for i, c := range series.Closes() {
		peer[i] = 2 * c
	}

	_, assessment, err := bearishEvaluator().Evaluate(context.Background(), Request{
		Symbol: "BTCUSDT",
		Series: series,
		Snapshot: cashSnapshot(contracts.Position{
			Symbol:    "WBTCUSDT",
			Quantity:  decimal.NewFromInt(1),
			MarkPrice: decimal.NewFromInt(3500),
		}),
		Config: sellHeavyConfig(),
		Market: MarketContext{PeerSeries: map[string][]float64{"WBTCUSDT": peer}},
	})

	require.NoError(t, err)
	assert.False(t, assessment.Approved)
	assert.Equal(t, contracts.GateCorrelation, assessment.Gate)
	assert.Equal(t, contracts.RiskHigh, assessment.RiskLevel)
}

func TestMergeCorrelations(t *testing.T) {
	closes := risingSeries(120).Closes()
	peer := make([]float64, len(closes))
	for i, c := range closes {
		peer[i] = 2 * c
	}

	merged := mergeCorrelations(MarketContext{
		Correlations: map[string]float64{"eth": 0.75, "ETH": 0.8, " sol ": -0.9, "WBTC": 0.1},
		PeerSeries:   map[string][]float64{"wbtc": peer, "ada": peer},
	}, closes)

	assert.Len(t, merged, 4)
	assert.InDelta(t, 0.8, merged["ETH"], 1e-12, "folded duplicates keep the stronger value")
	assert.InDelta(t, -0.9, merged["SOL"], 1e-12)
	assert.InDelta(t, 0.1, merged["WBTC"], 1e-12, "caller value overrides the derived one")
	assert.InDelta(t, 1.0, merged["ADA"], 1e-9)

	exp := contracts.PortfolioExposure{ByAsset: map[string]float64{"ETH": 0.1}}
	assert.InDelta(t, 0.1, risk.CorrelatedExposure(exp, merged, 0.7), 1e-12, "a position is counted once")
}

func TestEvaluateExclusive(t *testing.T) {
	e := New(nil)
	req := Request{Symbol: "BTCUSDT", Series: risingSeries(60), Config: riskconfig.Default()}

	require.True(t, e.Guard().TryAcquire("btcusdt"))
	_, _, err := e.EvaluateExclusive(context.Background(), req)
	assert.ErrorIs(t, err, ErrEvaluationInProgress)

	e.Guard().Release("BTCUSDT")
	_, _, err = e.EvaluateExclusive(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, e.Guard().Busy("BTCUSDT"))
}

func TestGuard_Concurrent(t *testing.T) {
	g := NewGuard()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("ETHUSDT") {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
	assert.True(t, g.Busy("ETHUSDT"))
	assert.False(t, g.Busy("BTCUSDT"))
}
