// Package evaluator is the single entry point that turns a price series and a
// portfolio snapshot into a composite decision and a risk assessment.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/fusion"
	"github.com/wonny/tradegate/internal/indicators"
	"github.com/wonny/tradegate/internal/providers"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/internal/signals"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/metrics"
)

// ErrEvaluationInProgress is returned by EvaluateExclusive when the symbol is busy
var ErrEvaluationInProgress = errors.New("evaluation already in progress")

// volatilityWindow is the return window for realized volatility
const volatilityWindow = 20

// MarketContext carries optional market facts supplied by the caller
type MarketContext struct {
	Sector          string             `json:"sector,omitempty"`
	ScheduledEvents []string           `json:"scheduled_events,omitempty"`
	LowLiquidity    bool               `json:"low_liquidity,omitempty"`
	Correlations    map[string]float64 `json:"correlations,omitempty"`

	// PeerSeries maps held symbols to their closes; correlations are derived
	// for peers missing from Correlations.
	PeerSeries map[string][]float64 `json:"peer_series,omitempty"`
}

// Request is one evaluation
type Request struct {
	Symbol    string                       `json:"symbol"`
	Series    *contracts.PriceSeries       `json:"series"`
	Timeframe contracts.Timeframe          `json:"timeframe,omitempty"`
	Snapshot  *contracts.PortfolioSnapshot `json:"snapshot"`
	Config    riskconfig.Config            `json:"config"`
	Market    MarketContext                `json:"market"`
}

// Evaluator wires the technical generator, collaborators, combiner and risk engine
// ⭐ SSOT: the only orchestration path from inputs to (CompositeSignal, RiskAssessment)
type Evaluator struct {
	params     signals.Params
	generator  *signals.Generator
	sentiment  providers.SentimentProvider
	prediction providers.PredictionProvider
	risk       *risk.Engine
	guard      *Guard
	logger     *logger.Logger
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithSentiment sets the sentiment collaborator
func WithSentiment(p providers.SentimentProvider) Option {
	return func(e *Evaluator) { e.sentiment = p }
}

// WithPrediction sets the prediction collaborator
func WithPrediction(p providers.PredictionProvider) Option {
	return func(e *Evaluator) { e.prediction = p }
}

// WithParams overrides the indicator periods
func WithParams(p signals.Params) Option {
	return func(e *Evaluator) { e.params = p }
}

// New creates an evaluator. Without collaborators both sources are unavailable.
func New(log *logger.Logger, opts ...Option) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	e := &Evaluator{
		params: signals.DefaultParams(),
		risk:   risk.NewEngine(log),
		guard:  NewGuard(),
		logger: log.WithComponent("evaluator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.generator = signals.NewGenerator(e.params, log)
	return e
}

// Guard returns the per-symbol exclusion guard shared by EvaluateExclusive
func (e *Evaluator) Guard() *Guard {
	return e.guard
}

// EvaluateExclusive runs Evaluate unless an evaluation of the same symbol is in flight.
func (e *Evaluator) EvaluateExclusive(ctx context.Context, req Request) (*contracts.CompositeSignal, *contracts.RiskAssessment, error) {
	if !e.guard.TryAcquire(req.Symbol) {
		return nil, nil, fmt.Errorf("%w: %s", ErrEvaluationInProgress, req.Symbol)
	}
	defer e.guard.Release(req.Symbol)

	return e.Evaluate(ctx, req)
}

// Evaluate validates the config, computes the technical verdict, fans out to
// the collaborators under the configured timeout, fuses and gates the result.
// Only an invalid config is an error; every other failure degrades a source.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*contracts.CompositeSignal, *contracts.RiskAssessment, error) {
	started := time.Now()

	cfg := req.Config
	if err := riskconfig.Validate(&cfg); err != nil {
		return nil, nil, err
	}

	log := e.logger.WithField("symbol", req.Symbol)
	var notes []string

	series, seriesErr := normalizeSeries(req)
	var (
		verdict signals.Verdict
		closes  []float64
	)
	if seriesErr != nil {
		verdict = signals.Unavailable(seriesErr.Error())
		notes = append(notes, "technical unavailable: "+seriesErr.Error())
		log.WithError(seriesErr).Warn("Invalid price series, technical source unavailable")
	} else {
		verdict = e.generator.Generate(series)
		closes = series.Closes()
	}

	technical := fusion.Missing(verdict.Signal.Reason)
	if verdict.Available {
		technical = fusion.Present(verdict.Signal)
	} else if seriesErr == nil {
		notes = append(notes, "technical unavailable: no indicator has enough data")
	}

	var features contracts.Features
	if seriesErr == nil {
		features = providers.BuildFeatures(series, verdict)
	} else {
		features = providers.BuildFeatures(nil, verdict)
	}

	sentiment, prediction, predictedVol := e.collaborate(ctx, cfg.CollaboratorTimeout(), req.Symbol, features, log)
	if !sentiment.Available {
		notes = append(notes, "sentiment unavailable: "+sentiment.Note)
	}
	if !prediction.Available {
		notes = append(notes, "prediction unavailable: "+prediction.Note)
	}

	in := fusion.Input{
		Symbol:              req.Symbol,
		Timeframe:           req.Timeframe,
		Technical:           technical,
		Sentiment:           sentiment,
		Prediction:          prediction,
		PredictedVolatility: predictedVol,
	}
	if series != nil {
		in.Timeframe = series.Timeframe
		if series.Len() > 0 {
			in.AsOf = series.Last().Time
			in.LastClose = series.Last().Close
		}
	}
	if seriesErr == nil {
		in.RealizedVolatility, in.RealizedKnown = indicators.RealizedVolatility(closes, volatilityWindow, series.Timeframe.BarsPerYear())
	}

	composite := fusion.NewCombiner(&cfg).Combine(in)

	assessment := e.risk.Evaluate(&cfg, risk.Input{
		Symbol:   req.Symbol,
		Signal:   &composite,
		Snapshot: req.Snapshot,
		Market: risk.MarketConditions{
			Sector:             req.Market.Sector,
			RealizedVolatility: in.RealizedVolatility,
			ScheduledEvents:    req.Market.ScheduledEvents,
			LowLiquidity:       req.Market.LowLiquidity,
			Correlations:       mergeCorrelations(req.Market, closes),
			Returns:            indicators.Returns(closes),
		},
	})
	assessment.Conditions = append(notes, assessment.Conditions...)

	metrics.Evaluations.WithLabelValues(string(composite.Direction), strconv.FormatBool(assessment.Approved)).Inc()
	if !assessment.Approved {
		metrics.RiskRejections.WithLabelValues(string(assessment.Gate)).Inc()
	}
	metrics.EvaluationDuration.Observe(time.Since(started).Seconds())

	log.WithFields(map[string]interface{}{
		"direction":  composite.Direction,
		"confidence": composite.Confidence,
		"approved":   assessment.Approved,
		"gate":       assessment.Gate,
		"size":       assessment.RecommendedSize,
	}).Info("Evaluation completed")

	return &composite, &assessment, nil
}

// collaborate queries sentiment and prediction concurrently. Each result is
// independent: a failure or timeout marks only that source unavailable.
func (e *Evaluator) collaborate(ctx context.Context, timeout time.Duration, symbol string, features contracts.Features, log *logger.Logger) (fusion.Component, fusion.Component, contracts.VolatilityLevel) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sentiment := fusion.Missing("no sentiment provider")
	prediction := fusion.Missing("no prediction provider")
	var predictedVol contracts.VolatilityLevel

	var g errgroup.Group

	if e.sentiment != nil {
		g.Go(func() error {
			reading, err := await(ctx, func(ctx context.Context) (contracts.SentimentReading, error) {
				return e.sentiment.Sentiment(ctx, symbol)
			})
			if err == nil {
				var sig contracts.Signal
				if sig, err = providers.SentimentSignal(reading); err == nil {
					sentiment = fusion.Present(sig)
					return nil
				}
			}
			sentiment = fusion.Missing(err.Error())
			collaboratorFailed(log, contracts.SourceSentiment, err)
			return nil
		})
	}

	if e.prediction != nil {
		g.Go(func() error {
			p, err := await(ctx, func(ctx context.Context) (contracts.Prediction, error) {
				return e.prediction.Predict(ctx, features, symbol)
			})
			if err == nil {
				var sig contracts.Signal
				if sig, err = providers.PredictionSignal(p); err == nil {
					prediction = fusion.Present(sig)
					predictedVol = p.Volatility
					return nil
				}
			}
			prediction = fusion.Missing(err.Error())
			collaboratorFailed(log, contracts.SourcePrediction, err)
			return nil
		})
	}

	_ = g.Wait()
	return sentiment, prediction, predictedVol
}

// await runs fn and gives up when ctx is done, even if fn ignores ctx.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", providers.ErrProviderUnavailable, ctx.Err())
	}
}

func collaboratorFailed(log *logger.Logger, src contracts.Source, err error) {
	metrics.CollaboratorFailures.WithLabelValues(string(src)).Inc()
	log.WithError(err).WithField("source", src).Warn("Collaborator unavailable")
}

// normalizeSeries applies the request timeframe and validates the series
func normalizeSeries(req Request) (*contracts.PriceSeries, error) {
	if req.Series == nil {
		return nil, fmt.Errorf("%w: no series supplied", contracts.ErrInvalidSeries)
	}

	series := *req.Series
	if req.Timeframe != "" {
		series.Timeframe = req.Timeframe
	}
	if series.Symbol == "" {
		series.Symbol = req.Symbol
	}
	if err := series.Validate(); err != nil {
		return &series, err
	}
	return &series, nil
}

// mergeCorrelations prefers caller-supplied correlations and derives the rest
// from peer closes. Keys are upper-cased; when two caller keys fold to the same
// symbol the stronger correlation is kept.
func mergeCorrelations(m MarketContext, closes []float64) map[string]float64 {
	out := make(map[string]float64, len(m.Correlations)+len(m.PeerSeries))
	if len(closes) > 0 && len(m.PeerSeries) > 0 {
		for sym, c := range risk.CorrelationsFromSeries(closes, m.PeerSeries) {
			key := strings.ToUpper(strings.TrimSpace(sym))
			if prev, ok := out[key]; !ok || math.Abs(c) > math.Abs(prev) {
				out[key] = c
			}
		}
	}

	given := make(map[string]float64, len(m.Correlations))
	for sym, c := range m.Correlations {
		key := strings.ToUpper(strings.TrimSpace(sym))
		if prev, ok := given[key]; !ok || math.Abs(c) > math.Abs(prev) {
			given[key] = c
		}
	}
	for key, c := range given {
		out[key] = c
	}
	return out
}
