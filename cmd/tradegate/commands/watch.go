package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/scheduler"
	"github.com/wonny/tradegate/internal/scheduler/jobs"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-evaluate the watchlist on a schedule",
	Long: `Evaluates every WATCHLIST symbol on WATCH_SCHEDULE (cron with seconds)
and prints each decision as one JSON line. A symbol whose previous evaluation
is still running is skipped.

Without --snapshot every decision is rejected at the exposure gate.

Example:
  WATCHLIST=BTCUSDT,ETHUSDT go run ./cmd/tradegate watch --data-dir ./data
  go run ./cmd/tradegate watch --symbols BTCUSDT --once`,
	RunE: runWatch,
}

var (
	watchSymbols      string
	watchDataDir      string
	watchSnapshotPath string
	watchOnce         bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchSymbols, "symbols", "", "comma separated symbols (default WATCHLIST)")
	watchCmd.Flags().StringVar(&watchDataDir, "data-dir", "", "series directory instead of the database")
	watchCmd.Flags().StringVar(&watchSnapshotPath, "snapshot", "", "JSON PortfolioSnapshot used for every run")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single pass and exit")
}

// jsonLines prints each decision as one JSON line
type jsonLines struct {
	mu  sync.Mutex
	out *os.File
}

func (j *jsonLines) Publish(d contracts.Decision) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := writeCompactJSON(j.out, d); err != nil {
		fmt.Fprintf(os.Stderr, "write decision: %v\n", err)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if watchSymbols != "" {
		a.cfg.Watchlist = nil
		for _, s := range strings.Split(watchSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				a.cfg.Watchlist = append(a.cfg.Watchlist, strings.ToUpper(s))
			}
		}
	}
	if len(a.cfg.Watchlist) == 0 {
		return fmt.Errorf("watchlist is empty: set WATCHLIST or --symbols")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sched, watch, err := a.buildScheduler(ctx, watchDataDir, &jsonLines{out: os.Stdout})
	if err != nil {
		return err
	}

	if watchOnce {
		res, err := sched.RunJobAndWait(watch.Name())
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("watch run %s failed: %s", res.RunID, res.Error)
		}
		return nil
	}

	sched.Start()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sched.Stop()
	return nil
}

// buildScheduler registers the watchlist job, plus a cache sweep when the
// collaborator cache lives in process memory.
func (a *app) buildScheduler(ctx context.Context, dataDir string, pub jobs.Publisher) (*scheduler.Scheduler, *jobs.WatchJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	eval, err := a.buildEvaluator()
	if err != nil {
		return nil, nil, err
	}
	src, err := a.marketSource(ctx, dataDir)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := loadSnapshot(watchSnapshotPath)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)
	watch := jobs.NewWatchJob(eval, src, jobs.StaticSnapshot{Value: snapshot}, a.risk, pub, jobs.WatchConfig{
		Symbols:   a.cfg.Watchlist,
		Timeframe: contracts.Timeframe(a.cfg.WatchTimeframe),
		Schedule:  a.cfg.WatchSchedule,
	}, a.log)
	if err := sched.AddJob(watch); err != nil {
		return nil, nil, err
	}

	if a.memory != nil {
		if err := sched.AddJob(jobs.NewCacheSweepJob(a.memory, "", a.log)); err != nil {
			return nil, nil, err
		}
	}
	return sched, watch, nil
}

