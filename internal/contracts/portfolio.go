package contracts

import "github.com/shopspring/decimal"

// VenueAccount is one connected execution venue with its balances
type VenueAccount struct {
	Name          string                     `json:"name"`
	Connected     bool                       `json:"connected"`
	QuoteCurrency string                     `json:"quote_currency"`
	Balances      map[string]decimal.Decimal `json:"balances"`
}

// QuoteBalance returns the free balance in the venue's quote currency
func (v VenueAccount) QuoteBalance() decimal.Decimal {
	if v.Balances == nil {
		return decimal.Zero
	}
	return v.Balances[v.QuoteCurrency]
}

// Position is an open holding. Quantity is signed; negative means short.
type Position struct {
	Symbol    string          `json:"symbol"`
	Sector    string          `json:"sector"`
	Venue     string          `json:"venue"`
	Quantity  decimal.Decimal `json:"quantity"`
	MarkPrice decimal.Decimal `json:"mark_price"`
}

// Notional returns |quantity × mark price|
func (p Position) Notional() decimal.Decimal {
	return p.Quantity.Mul(p.MarkPrice).Abs()
}

// PortfolioSnapshot is supplied by the execution layer per evaluation
// ⭐ SSOT: the only input used to derive PortfolioExposure
type PortfolioSnapshot struct {
	Venues        []VenueAccount  `json:"venues"`
	OpenPositions []Position      `json:"open_positions"`
	DailyPnL      decimal.Decimal `json:"daily_pnl"`
}

// PortfolioExposure is a derived, read-only view of the snapshot in equity fractions
type PortfolioExposure struct {
	Equity           float64            `json:"equity"`
	TotalFraction    float64            `json:"total_fraction"`
	ByAsset          map[string]float64 `json:"by_asset"`
	BySector         map[string]float64 `json:"by_sector"`
	DailyPnLFraction float64            `json:"daily_pnl_fraction"`
}
