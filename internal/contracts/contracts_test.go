package contracts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func seriesAt(closes ...float64) PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return PriceSeries{Symbol: "X", Timeframe: Timeframe1h, Bars: bars}
}

func TestPriceSeries_Validate(t *testing.T) {
	valid := seriesAt(1, 2, 3)

	unordered := seriesAt(1, 2, 3)
	unordered.Bars[2].Time = unordered.Bars[1].Time

	nonPositive := seriesAt(1, 0, 3)

	nan := seriesAt(1, 2, 3)
	nan.Bars[1].High = math.NaN()

	inverted := seriesAt(1, 2, 3)
	inverted.Bars[0].Low = 5

	tests := []struct {
		name    string
		series  PriceSeries
		wantErr bool
	}{
		{"valid", valid, false},
		{"empty", PriceSeries{}, true},
		{"duplicate timestamp", unordered, true},
		{"zero price", nonPositive, true},
		{"nan high", nan, true},
		{"high below low", inverted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSeries))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceSeries_Columns(t *testing.T) {
	s := seriesAt(1, 2, 3)
	assert.Equal(t, []float64{1, 2, 3}, s.Closes())
	assert.Equal(t, 3.0, s.Last().Close)
	assert.Equal(t, Bar{}, (&PriceSeries{}).Last())
}

func TestTimeframe_BarsPerYear(t *testing.T) {
	assert.Equal(t, 8760.0, Timeframe1h.BarsPerYear())
	assert.Equal(t, 365.0, Timeframe1d.BarsPerYear())
	assert.Equal(t, 365.0, Timeframe("3d").BarsPerYear())
}

func TestDirection_Bucket(t *testing.T) {
	assert.Equal(t, DirectionHold, DirectionNeutral.Bucket())
	assert.Equal(t, DirectionBuy, DirectionBuy.Bucket())
	assert.Equal(t, DirectionHold, Direction("").Bucket())
	assert.False(t, DirectionHold.IsActionable())
}

func TestNewSignal_Clamps(t *testing.T) {
	s := NewSignal("x", DirectionBuy, 1.4, math.NaN(), "")
	assert.Equal(t, 1.0, s.Strength)
	assert.Equal(t, 0.0, s.Confidence)

	withMeta := s.WithMeta("k", 2)
	assert.Nil(t, s.Metadata)
	assert.Equal(t, 2.0, withMeta.Metadata["k"])
}

func TestRiskLevel_Ordering(t *testing.T) {
	assert.Equal(t, RiskMedium, RiskLow.Escalate())
	assert.Equal(t, RiskExtreme, RiskExtreme.Escalate())
	assert.Equal(t, RiskHigh, RiskMedium.Max(RiskHigh))
	assert.Equal(t, RiskHigh, RiskHigh.Max(RiskLow))
}

func TestVolatilityLevel_Multiplier(t *testing.T) {
	assert.Equal(t, 0.7, VolatilityLow.Multiplier())
	assert.Equal(t, 1.0, VolatilityMedium.Multiplier())
	assert.Equal(t, 1.5, VolatilityHigh.Multiplier())
}

func TestPosition_Notional(t *testing.T) {
	p := Position{Quantity: decimal.NewFromInt(-2), MarkPrice: decimal.NewFromFloat(50.5)}
	assert.True(t, p.Notional().Equal(decimal.NewFromInt(101)))

	v := VenueAccount{QuoteCurrency: "USDT"}
	assert.True(t, v.QuoteBalance().IsZero())
}

func TestClassifyVolatility(t *testing.T) {
	assert.Equal(t, VolatilityLow, ClassifyVolatility(0.1))
	assert.Equal(t, VolatilityMedium, ClassifyVolatility(0.25))
	assert.Equal(t, VolatilityMedium, ClassifyVolatility(0.40))
	assert.Equal(t, VolatilityHigh, ClassifyVolatility(0.41))
}
