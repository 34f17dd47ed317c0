package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	riskConfigPath string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradegate",
	Short: "tradegate - signal fusion and risk gating",
	Long: `tradegate Unified CLI

Turns OHLCV history into a technical verdict, fuses it with sentiment and
prediction collaborators, and gates the result through the risk evaluator.

Usage:
  go run ./cmd/tradegate [command]

Examples:
  go run ./cmd/tradegate evaluate --series btc_1h.json --snapshot portfolio.json
  go run ./cmd/tradegate indicators --series btc_1h.json
  go run ./cmd/tradegate config validate risk.yaml
  go run ./cmd/tradegate serve
  go run ./cmd/tradegate watch --once`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&riskConfigPath, "risk-config", "", "risk config YAML (default RISK_CONFIG_PATH, else built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
