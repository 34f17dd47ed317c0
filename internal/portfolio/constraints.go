package portfolio

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/riskconfig"
)

// Limits are the exposure caps, as fractions of equity
// ⭐ SSOT: built from riskconfig.Config, never hard-coded
type Limits struct {
	MaxTotal  float64 // whole book
	MaxAsset  float64 // single symbol
	MaxSector float64 // single sector
}

// LimitsFrom extracts the exposure caps from a risk config
func LimitsFrom(cfg *riskconfig.Config) Limits {
	return Limits{
		MaxTotal:  cfg.MaxTotalExposure,
		MaxAsset:  cfg.MaxAssetExposure,
		MaxSector: cfg.MaxSectorExposure,
	}
}

// Breach reports the first cap the current exposure already exceeds,
// checking total, then the candidate's asset, then its sector.
func (l Limits) Breach(exp contracts.PortfolioExposure, symbol, sector string) (string, bool) {
	if exp.TotalFraction > l.MaxTotal {
		return breachMessage("total", exp.TotalFraction, l.MaxTotal), true
	}

	asset := strings.ToUpper(symbol)
	if v := exp.ByAsset[asset]; v > l.MaxAsset {
		return breachMessage("asset "+asset, v, l.MaxAsset), true
	}

	if sector != "" {
		if v := exp.BySector[sector]; v > l.MaxSector {
			return breachMessage("sector "+sector, v, l.MaxSector), true
		}
	}

	return "", false
}

// Headroom returns the largest additional fraction that keeps every cap
func (l Limits) Headroom(exp contracts.PortfolioExposure, symbol, sector string) float64 {
	room := l.MaxTotal - exp.TotalFraction
	room = math.Min(room, l.MaxAsset-exp.ByAsset[strings.ToUpper(symbol)])
	if sector != "" {
		room = math.Min(room, l.MaxSector-exp.BySector[sector])
	}
	return math.Max(room, 0)
}

func breachMessage(scope string, current, limit float64) string {
	return fmt.Sprintf("%s exposure %.1f%% exceeds limit %.1f%%", scope, current*100, limit*100)
}
