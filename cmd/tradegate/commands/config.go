package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/tradegate/internal/riskconfig"
)

// configCmd groups risk config helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Risk config tools",
	Long: `Validate or print the risk configuration.

Subcommands:
  validate  - check a YAML risk config and list every violation and warning
  show      - print the effective risk config as YAML

Example:
  go run ./cmd/tradegate config validate risk.yaml
  go run ./cmd/tradegate config show`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a risk config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigValidate,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective risk config",
		RunE:  runConfigShow,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path := riskConfigPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("a config path is required (argument or --risk-config)")
	}

	PrintHeader(out, "Risk config: "+path)

	cfg, _, err := riskconfig.Load(path)
	var cfgErr *riskconfig.ConfigError
	if errors.As(err, &cfgErr) {
		for _, v := range cfgErr.Violations {
			PrintFailure(out, v.String())
		}
		return fmt.Errorf("%d violation(s)", len(cfgErr.Violations))
	}
	if err != nil {
		PrintFailure(out, err.Error())
		return err
	}

	for _, w := range riskconfig.Warn(cfg) {
		PrintWarning(out, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}

	hash, err := riskconfig.Hash(cfg)
	if err != nil {
		return err
	}
	PrintSuccess(out, "valid")
	fmt.Fprintf(out, "  Hash      : %s\n", hash)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	var cfg riskconfig.Config
	if riskConfigPath != "" {
		loaded, _, err := riskconfig.Load(riskConfigPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	} else {
		cfg = riskconfig.Default()
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
