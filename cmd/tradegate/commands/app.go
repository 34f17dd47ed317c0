package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/evaluator"
	"github.com/wonny/tradegate/internal/marketdata"
	"github.com/wonny/tradegate/internal/providers"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/database"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/metrics"
	"github.com/wonny/tradegate/pkg/redis"
)

// app bundles the process-wide dependencies shared by commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	risk    riskconfig.Config
	memory  *providers.MemoryStore
	closers []func()
	eval    *evaluator.Evaluator
}

// newApp loads config, the logger and the risk config. Logs go to w so
// commands can keep stdout for their own output.
func newApp(w io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	var log *logger.Logger
	if w == os.Stdout {
		log = logger.New(cfg)
	} else {
		log = logger.NewWithWriter(w, cfg.LogLevel)
	}

	risk, err := loadRiskConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	return &app{cfg: cfg, log: log, risk: risk}, nil
}

// loadRiskConfig reads --risk-config or RISK_CONFIG_PATH; without either the
// defaults apply with the process collaborator timeout.
func loadRiskConfig(cfg *config.Config) (riskconfig.Config, error) {
	path := riskConfigPath
	if path == "" {
		path = cfg.RiskConfigPath
	}

	if path == "" {
		risk := riskconfig.Default()
		risk.CollaboratorTimeoutMS = int(cfg.CollaboratorTimeout.Milliseconds())
		return risk, nil
	}

	risk, _, err := riskconfig.Load(path)
	if err != nil {
		return riskconfig.Config{}, fmt.Errorf("load risk config %s: %w", path, err)
	}
	return *risk, nil
}

// buildEvaluator wires the collaborators. HTTP endpoints are used when
// configured; otherwise prediction falls back to the local trend predictor and
// sentiment stays unavailable. Readings are cached in Redis when enabled,
// else in process memory.
func (a *app) buildEvaluator() (*evaluator.Evaluator, error) {
	if a.eval != nil {
		return a.eval, nil
	}

	var store providers.Store
	if a.cfg.Redis.Enabled {
		client, err := redis.New(a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		store = providers.NewRedisStore(redis.NewCache(client, "tradegate"))
		a.log.Info("Collaborator cache: redis")
	} else {
		a.memory = providers.NewMemoryStore(nil)
		store = a.memory
	}
	cache := providers.NewCache(store, a.cfg.CacheTTL, a.log)

	var opts []evaluator.Option
	if a.cfg.Sentiment.Enabled() {
		opts = append(opts, evaluator.WithSentiment(
			providers.NewCachedSentiment(providers.NewHTTPSentiment(a.cfg.Sentiment, a.log), cache)))
	}
	if a.cfg.Prediction.Enabled() {
		opts = append(opts, evaluator.WithPrediction(
			providers.NewCachedPrediction(providers.NewHTTPPrediction(a.cfg.Prediction, a.log), cache)))
	} else {
		opts = append(opts, evaluator.WithPrediction(providers.TrendPredictor{}))
	}

	a.eval = evaluator.New(a.log, opts...)
	return a.eval, nil
}

// marketSource serves series from dir when set, else from PostgreSQL
func (a *app) marketSource(ctx context.Context, dir string) (marketdata.Source, error) {
	if dir != "" {
		return marketdata.DirSource{Dir: dir}, nil
	}
	if !a.cfg.Database.Enabled() {
		return nil, fmt.Errorf("no market data: set --data-dir or DATABASE_URL")
	}

	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return marketdata.NewRepository(db.Pool), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// readJSONFile decodes a JSON file into dest
func readJSONFile(path string, dest interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// loadSnapshot reads a portfolio snapshot; an empty path means no snapshot
func loadSnapshot(path string) (*contracts.PortfolioSnapshot, error) {
	if path == "" {
		return nil, nil
	}
	var snap contracts.PortfolioSnapshot
	if err := readJSONFile(path, &snap); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}
