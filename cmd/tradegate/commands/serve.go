package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/api"
	"github.com/wonny/tradegate/internal/api/handlers"
	"github.com/wonny/tradegate/internal/scheduler"
	"github.com/wonny/tradegate/internal/signals"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the REST API and the decision stream. When WATCHLIST is set the
watchlist scheduler runs in the same process and publishes to the stream.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics (METRICS_ENABLED)
  GET  /ws/decisions            - Websocket stream of decisions
  POST /api/evaluate            - Evaluate one symbol
  POST /api/indicators          - Technical verdict for a series
  POST /api/config/validate     - Validate a risk config
  GET  /api/jobs                - Watchlist job statistics
  GET  /api/jobs/{name}/history - Recorded runs of a job

Example:
  go run ./cmd/tradegate serve
  go run ./cmd/tradegate serve --port 8080 --data-dir ./data`,
	RunE: runServe,
}

var (
	servePort    string
	serveDataDir string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API port (default PORT)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "watchlist series directory instead of the database")
	serveCmd.Flags().StringVar(&watchSnapshotPath, "snapshot", "", "JSON PortfolioSnapshot used by watchlist runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	eval, err := a.buildEvaluator()
	if err != nil {
		return err
	}

	hub := api.NewHub(a.log)
	routes := api.Routes{
		Evaluation: handlers.NewEvaluationHandler(eval, a.risk, hub, a.log),
		Indicators: handlers.NewIndicatorHandler(signals.NewGenerator(signals.DefaultParams(), a.log), a.log),
		Hub:        hub,
		Metrics:    a.cfg.MetricsEnabled,
	}

	var sched *scheduler.Scheduler
	if len(a.cfg.Watchlist) > 0 {
		sched, _, err = a.buildScheduler(cmd.Context(), serveDataDir, hub)
		if err != nil {
			return err
		}
		routes.Jobs = handlers.NewJobHandler(sched)
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if sched != nil {
		fmt.Printf("   Watching %v every %q\n", a.cfg.Watchlist, a.cfg.WatchSchedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
