package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/evaluator"
	"github.com/wonny/tradegate/internal/marketdata"
	"github.com/wonny/tradegate/internal/riskconfig"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one symbol end to end",
	Long: `Runs the technical generator, the configured collaborators, the combiner
and the risk evaluator for one symbol.

The series comes from --series (a JSON PriceSeries) or, with --symbol, from
--data-dir or the market.bars table.

Example:
  go run ./cmd/tradegate evaluate --series btc_1h.json --snapshot portfolio.json
  go run ./cmd/tradegate evaluate --symbol BTCUSDT --timeframe 4h --data-dir ./data --json`,
	RunE: runEvaluate,
}

var (
	evalSeriesPath   string
	evalSymbol       string
	evalTimeframe    string
	evalDataDir      string
	evalBars         int
	evalSnapshotPath string
	evalMarketPath   string
	evalJSON         bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalSeriesPath, "series", "", "JSON PriceSeries file")
	evaluateCmd.Flags().StringVar(&evalSymbol, "symbol", "", "symbol to load when --series is not given")
	evaluateCmd.Flags().StringVar(&evalTimeframe, "timeframe", "1h", "bar interval")
	evaluateCmd.Flags().StringVar(&evalDataDir, "data-dir", "", "directory of <SYMBOL>_<timeframe>.json files")
	evaluateCmd.Flags().IntVar(&evalBars, "bars", 300, "bars to load from the market data source")
	evaluateCmd.Flags().StringVar(&evalSnapshotPath, "snapshot", "", "JSON PortfolioSnapshot file")
	evaluateCmd.Flags().StringVar(&evalMarketPath, "market", "", "JSON market context (sector, scheduled_events, correlations)")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print JSON instead of text")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	series, err := loadEvalSeries(ctx, a)
	if err != nil {
		return err
	}

	snapshot, err := loadSnapshot(evalSnapshotPath)
	if err != nil {
		return err
	}

	var market evaluator.MarketContext
	if evalMarketPath != "" {
		if err := readJSONFile(evalMarketPath, &market); err != nil {
			return fmt.Errorf("load market context: %w", err)
		}
	}

	eval, err := a.buildEvaluator()
	if err != nil {
		return err
	}

	symbol := evalSymbol
	if symbol == "" {
		symbol = series.Symbol
	}

	// A series file carries its own timeframe unless the flag overrides it
	tf := contracts.Timeframe(evalTimeframe)
	if series.Timeframe != "" && !cmd.Flags().Changed("timeframe") {
		tf = series.Timeframe
	}

	sig, assessment, err := eval.Evaluate(ctx, evaluator.Request{
		Symbol:    strings.ToUpper(symbol),
		Series:    series,
		Timeframe: tf,
		Snapshot:  snapshot,
		Config:    a.risk,
		Market:    market,
	})

	var cfgErr *riskconfig.ConfigError
	if errors.As(err, &cfgErr) {
		for _, v := range cfgErr.Violations {
			PrintFailure(out, v.String())
		}
		return err
	}
	if err != nil {
		return err
	}

	if evalJSON {
		return writeJSON(out, contracts.Decision{Symbol: sig.Symbol, Signal: sig, Assessment: assessment, EvaluatedAt: sig.AsOf})
	}
	printDecision(out, sig, assessment)
	return nil
}

func loadEvalSeries(ctx context.Context, a *app) (*contracts.PriceSeries, error) {
	if evalSeriesPath != "" {
		return marketdata.LoadFile(evalSeriesPath)
	}

	if evalSymbol == "" {
		return nil, fmt.Errorf("either --series or --symbol is required")
	}

	src, err := a.marketSource(ctx, evalDataDir)
	if err != nil {
		return nil, err
	}
	return src.LoadSeries(ctx, evalSymbol, contracts.Timeframe(evalTimeframe), evalBars)
}
