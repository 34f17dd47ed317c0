package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/evaluator"
	"github.com/wonny/tradegate/internal/marketdata"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/internal/scheduler"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/metrics"
)

// Evaluator is the part of evaluator.Evaluator the watch job needs
type Evaluator interface {
	EvaluateExclusive(ctx context.Context, req evaluator.Request) (*contracts.CompositeSignal, *contracts.RiskAssessment, error)
}

// Publisher receives every finished decision
type Publisher interface {
	Publish(d contracts.Decision)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(d contracts.Decision)

// Publish calls f(d)
func (f PublisherFunc) Publish(d contracts.Decision) { f(d) }

// SnapshotSource supplies the current portfolio snapshot
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*contracts.PortfolioSnapshot, error)
}

// StaticSnapshot always returns the same snapshot
type StaticSnapshot struct {
	Value *contracts.PortfolioSnapshot
}

// Snapshot returns the fixed snapshot
func (s StaticSnapshot) Snapshot(context.Context) (*contracts.PortfolioSnapshot, error) {
	return s.Value, nil
}

// WatchConfig describes the watchlist
type WatchConfig struct {
	Symbols   []string
	Timeframe contracts.Timeframe
	Schedule  string
	Bars      int

	// Markets holds optional per-symbol context (sector, events, liquidity)
	Markets map[string]evaluator.MarketContext
}

const portfolioSource = "portfolio"

// DefaultBars is the history loaded per symbol when WatchConfig.Bars is unset
const DefaultBars = 300

// WatchJob re-evaluates every watchlist symbol on a schedule
// ⭐ SSOT: scheduled evaluations go through EvaluateExclusive
type WatchJob struct {
	eval      Evaluator
	source    marketdata.Source
	snapshots SnapshotSource
	risk      riskconfig.Config
	publisher Publisher
	cfg       WatchConfig
	logger    *logger.Logger
}

// NewWatchJob creates a watchlist job
func NewWatchJob(eval Evaluator, source marketdata.Source, snapshots SnapshotSource, risk riskconfig.Config, pub Publisher, cfg WatchConfig, log *logger.Logger) *WatchJob {
	if cfg.Bars <= 0 {
		cfg.Bars = DefaultBars
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = contracts.Timeframe1h
	}
	if log == nil {
		log = logger.Nop()
	}
	if len(cfg.Markets) > 0 {
		markets := make(map[string]evaluator.MarketContext, len(cfg.Markets))
		for sym, m := range cfg.Markets {
			markets[strings.ToUpper(strings.TrimSpace(sym))] = m
		}
		cfg.Markets = markets
	}
	return &WatchJob{
		eval:      eval,
		source:    source,
		snapshots: snapshots,
		risk:      risk,
		publisher: pub,
		cfg:       cfg,
		logger:    log.WithComponent("watch"),
	}
}

// Name returns the job name
func (j *WatchJob) Name() string {
	return "watchlist_" + string(j.cfg.Timeframe)
}

// Schedule returns the cron schedule
func (j *WatchJob) Schedule() string {
	return j.cfg.Schedule
}

// Run evaluates each symbol in turn. A symbol still being evaluated by an
// earlier run is skipped. The error joins every per-symbol failure.
func (j *WatchJob) Run(ctx context.Context) error {
	runID := scheduler.RunIDFromContext(ctx)
	log := j.logger.WithField("run_id", runID)

	// Without a snapshot every decision still publishes and rejects at EXPOSURE_OK
	snapshot, err := j.snapshots.Snapshot(ctx)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues(portfolioSource).Inc()
		log.WithError(err).Warn("Portfolio snapshot unavailable")
		snapshot = nil
	}

	var errs []error
	evaluated, skipped := 0, 0
	for _, symbol := range j.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		d, err := j.evaluate(ctx, symbol, snapshot)
		switch {
		case errors.Is(err, evaluator.ErrEvaluationInProgress):
			skipped++
			log.WithField("symbol", symbol).Debug("Skipping symbol with evaluation in flight")
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			log.WithError(err).WithField("symbol", symbol).Warn("Watchlist evaluation failed")
			continue
		}

		d.RunID = runID
		evaluated++
		if j.publisher != nil {
			j.publisher.Publish(d)
		}
	}

	log.WithFields(map[string]interface{}{
		"evaluated": evaluated,
		"skipped":   skipped,
		"failed":    len(errs),
	}).Info("Watchlist run finished")

	return errors.Join(errs...)
}

func (j *WatchJob) evaluate(ctx context.Context, symbol string, snapshot *contracts.PortfolioSnapshot) (contracts.Decision, error) {
	symbol = strings.ToUpper(symbol)

	series, err := j.source.LoadSeries(ctx, symbol, j.cfg.Timeframe, j.cfg.Bars)
	if err != nil {
		return contracts.Decision{}, fmt.Errorf("load series: %w", err)
	}

	market := j.cfg.Markets[symbol]
	market.PeerSeries = j.peerCloses(ctx, symbol, snapshot, market.PeerSeries)

	sig, assessment, err := j.eval.EvaluateExclusive(ctx, evaluator.Request{
		Symbol:    symbol,
		Series:    series,
		Timeframe: j.cfg.Timeframe,
		Snapshot:  snapshot,
		Config:    j.risk,
		Market:    market,
	})
	if err != nil {
		return contracts.Decision{}, err
	}

	return contracts.Decision{
		Symbol:      symbol,
		Signal:      sig,
		Assessment:  assessment,
		EvaluatedAt: time.Now().UTC(),
	}, nil
}

// peerCloses loads closes for every held symbol other than the candidate so
// correlations can be derived. Missing peers are left out.
func (j *WatchJob) peerCloses(ctx context.Context, symbol string, snapshot *contracts.PortfolioSnapshot, given map[string][]float64) map[string][]float64 {
	if snapshot == nil || len(snapshot.OpenPositions) == 0 {
		return given
	}

	out := make(map[string][]float64, len(given)+len(snapshot.OpenPositions))
	for k, v := range given {
		out[k] = v
	}
	for _, p := range snapshot.OpenPositions {
		peer := strings.ToUpper(p.Symbol)
		if peer == symbol {
			continue
		}
		if _, ok := out[peer]; ok {
			continue
		}
		series, err := j.source.LoadSeries(ctx, peer, j.cfg.Timeframe, j.cfg.Bars)
		if err != nil {
			j.logger.WithError(err).WithField("peer", peer).Debug("Peer series unavailable")
			continue
		}
		out[peer] = series.Closes()
	}
	return out
}
