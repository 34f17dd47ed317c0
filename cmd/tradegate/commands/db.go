package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/marketdata"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/database"
)

// dbCmd groups market data store commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Market data store tools",
	Long: `Checks the PostgreSQL connection and manages the market.bars table.

Subcommands:
  check   - ping, health check and pool statistics
  init    - create the market.bars table
  import  - upsert a JSON PriceSeries into market.bars

Example:
  go run ./cmd/tradegate db check
  go run ./cmd/tradegate db import --series btc_1h.json`,
}

var (
	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Test the database connection",
		RunE:  runDBCheck,
	}

	dbInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the market.bars table",
		RunE:  runDBInit,
	}

	dbImportCmd = &cobra.Command{
		Use:   "import",
		Short: "Import a JSON PriceSeries",
		RunE:  runDBImport,
	}

	importSeriesPath string
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCheckCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbImportCmd)

	dbImportCmd.Flags().StringVar(&importSeriesPath, "series", "", "JSON PriceSeries file")
	dbImportCmd.MarkFlagRequired("series")
}

func connectDB(ctx context.Context) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	fmt.Printf("Database URL: %s\n", maskPassword(cfg.Database.URL))

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := cmd.OutOrStdout()

	PrintHeader(out, "Database connection test")
	db, err := connectDB(ctx)
	if err != nil {
		PrintFailure(out, err.Error())
		return err
	}
	defer db.Close()
	PrintSuccess(out, "Connection established")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintFailure(out, "Health check failed: "+err.Error())
		return err
	}

	PrintSuccess(out, "Health check passed")
	fmt.Fprintf(out, "   Response Time: %v\n", status.ResponseTime)
	fmt.Fprintf(out, "   Total Connections: %d\n", status.TotalConns)
	fmt.Fprintf(out, "   Acquired Connections: %d\n", status.AcquiredConns)
	fmt.Fprintf(out, "   Idle Connections: %d\n", status.IdleConns)
	return nil
}

func runDBInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := marketdata.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
		return err
	}
	PrintSuccess(cmd.OutOrStdout(), "market.bars ready")
	return nil
}

func runDBImport(cmd *cobra.Command, args []string) error {
	series, err := marketdata.LoadFile(importSeriesPath)
	if err != nil {
		return err
	}
	if err := series.Validate(); err != nil {
		return err
	}
	if series.Symbol == "" || series.Timeframe == "" {
		return fmt.Errorf("series file must carry symbol and timeframe")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := marketdata.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.SaveSeries(ctx, series); err != nil {
		return err
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("imported %d bars for %s %s", series.Len(), series.Symbol, series.Timeframe))
	return nil
}

// maskPassword hides the password in a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
