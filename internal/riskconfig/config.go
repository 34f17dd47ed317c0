package riskconfig

import (
	"strings"
	"time"
)

// Config is the flat, bounded risk and fusion configuration.
// ⭐ SSOT: every numeric limit used by fusion and risk gating lives here.
// Bounds are enforced by Validate; defaults come from Default.
type Config struct {
	MaxPositionSize    float64 `yaml:"max_position_size" json:"max_position_size" default:"0.05" validate:"gt=0,lte=0.1"`
	MaxDailyLoss       float64 `yaml:"max_daily_loss" json:"max_daily_loss" default:"0.02" validate:"gt=0,lte=0.05"`
	MaxTotalExposure   float64 `yaml:"max_total_exposure" json:"max_total_exposure" default:"0.8" validate:"gt=0,lte=1"`
	MaxAssetExposure   float64 `yaml:"max_asset_exposure" json:"max_asset_exposure" default:"0.2" validate:"gt=0,lte=1"`
	MaxSectorExposure  float64 `yaml:"max_sector_exposure" json:"max_sector_exposure" default:"0.3" validate:"gt=0,lte=1"`
	StopLossPercentage float64 `yaml:"stop_loss_percentage" json:"stop_loss_percentage" default:"0.02" validate:"gt=0,lte=0.1"`
	RewardRiskRatio    float64 `yaml:"reward_risk_ratio" json:"reward_risk_ratio" default:"2" validate:"gt=0,lte=10"`

	MinSignalQuality float64 `yaml:"min_signal_quality" json:"min_signal_quality" default:"0.6" validate:"gte=0,lte=1"`
	MinTradeValue    float64 `yaml:"min_trade_value" json:"min_trade_value" default:"10" validate:"gte=0"`

	UseKelly bool    `yaml:"use_kelly" json:"use_kelly"`
	KellyCap float64 `yaml:"kelly_cap" json:"kelly_cap" default:"0.05" validate:"gt=0,lte=1"`

	CorrelationThreshold   float64 `yaml:"correlation_threshold" json:"correlation_threshold" default:"0.7" validate:"gt=0,lte=1"`
	CorrelationHighLimit   float64 `yaml:"correlation_high_limit" json:"correlation_high_limit" default:"0.3" validate:"gt=0,lte=1"`
	CorrelationMediumLimit float64 `yaml:"correlation_medium_limit" json:"correlation_medium_limit" default:"0.15" validate:"gt=0,lte=1"`

	ActivationThreshold float64 `yaml:"activation_threshold" json:"activation_threshold" default:"0.6" validate:"gt=0,lte=1"`
	Weights             Weights `yaml:"weights" json:"weights"`

	AllowedSymbols []string `yaml:"allowed_symbols" json:"allowed_symbols,omitempty" validate:"dive,required"`
	BlockedSymbols []string `yaml:"blocked_symbols" json:"blocked_symbols,omitempty" validate:"dive,required"`

	CollaboratorTimeoutMS int `yaml:"collaborator_timeout_ms" json:"collaborator_timeout_ms" default:"3000" validate:"gt=0,lte=60000"`
}

// Weights are the fusion weights per source. They must sum to 1 within weightTolerance.
type Weights struct {
	Technical  float64 `yaml:"technical" json:"technical" default:"0.5" validate:"gte=0,lte=1"`
	Sentiment  float64 `yaml:"sentiment" json:"sentiment" default:"0.3" validate:"gte=0,lte=1"`
	Prediction float64 `yaml:"prediction" json:"prediction" default:"0.2" validate:"gte=0,lte=1"`
}

// Sum returns the sum of all weights
func (w Weights) Sum() float64 {
	return w.Technical + w.Sentiment + w.Prediction
}

// Clone returns a copy that shares no slices with c
func (c Config) Clone() Config {
	out := c
	if c.AllowedSymbols != nil {
		out.AllowedSymbols = append([]string(nil), c.AllowedSymbols...)
	}
	if c.BlockedSymbols != nil {
		out.BlockedSymbols = append([]string(nil), c.BlockedSymbols...)
	}
	return out
}

// CollaboratorTimeout returns the per-evaluation collaborator budget
func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutMS) * time.Millisecond
}

// SymbolPermitted checks the block list first, then the allow list when one is set.
func (c *Config) SymbolPermitted(symbol string) (bool, string) {
	if containsSymbol(c.BlockedSymbols, symbol) {
		return false, "symbol " + symbol + " is blocked"
	}
	if len(c.AllowedSymbols) > 0 && !containsSymbol(c.AllowedSymbols, symbol) {
		return false, "symbol " + symbol + " is not in the allowed list"
	}
	return true, ""
}

func containsSymbol(list []string, symbol string) bool {
	for _, s := range list {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}
