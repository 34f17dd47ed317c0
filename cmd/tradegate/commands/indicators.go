package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/marketdata"
	"github.com/wonny/tradegate/internal/signals"
	"github.com/wonny/tradegate/pkg/logger"
)

// indicatorsCmd represents the indicators command
var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Print indicator values, patterns and rule signals",
	Long: `Computes the technical verdict for a JSON PriceSeries without calling
collaborators or the risk evaluator.

Example:
  go run ./cmd/tradegate indicators --series btc_1h.json
  go run ./cmd/tradegate indicators --series btc_1h.json --json`,
	RunE: runIndicators,
}

var (
	indSeriesPath string
	indJSON       bool
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)

	indicatorsCmd.Flags().StringVar(&indSeriesPath, "series", "", "JSON PriceSeries file")
	indicatorsCmd.Flags().BoolVar(&indJSON, "json", false, "print JSON instead of text")
	indicatorsCmd.MarkFlagRequired("series")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	series, err := marketdata.LoadFile(indSeriesPath)
	if err != nil {
		return err
	}
	if err := series.Validate(); err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	gen := signals.NewGenerator(signals.DefaultParams(), logger.NewWithWriter(cmd.ErrOrStderr(), level))
	verdict := gen.Generate(series)

	if indJSON {
		return writeJSON(out, verdict)
	}
	printVerdict(out, series, verdict)
	return nil
}
