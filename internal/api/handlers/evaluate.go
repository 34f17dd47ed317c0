package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/evaluator"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/pkg/logger"
)

// Evaluator runs one exclusive evaluation
type Evaluator interface {
	EvaluateExclusive(ctx context.Context, req evaluator.Request) (*contracts.CompositeSignal, *contracts.RiskAssessment, error)
}

// Publisher receives decisions produced by the API
type Publisher interface {
	Publish(d contracts.Decision)
}

// EvaluationHandler serves on-demand evaluations
// ⭐ SSOT: HTTP evaluations go through this handler
type EvaluationHandler struct {
	eval      Evaluator
	risk      riskconfig.Config
	publisher Publisher
	logger    *logger.Logger
}

// NewEvaluationHandler creates a handler. risk is used when a request carries no config.
func NewEvaluationHandler(eval Evaluator, risk riskconfig.Config, pub Publisher, log *logger.Logger) *EvaluationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EvaluationHandler{
		eval:      eval,
		risk:      risk,
		publisher: pub,
		logger:    log,
	}
}

// EvaluateRequest is the body of POST /api/evaluate
type EvaluateRequest struct {
	Symbol    string                       `json:"symbol"`
	Timeframe contracts.Timeframe          `json:"timeframe,omitempty"`
	Series    *contracts.PriceSeries       `json:"series"`
	Snapshot  *contracts.PortfolioSnapshot `json:"snapshot"`
	Config    json.RawMessage              `json:"config,omitempty"`
	Market    evaluator.MarketContext      `json:"market"`
}

// EvaluateResponse is the reply of POST /api/evaluate
type EvaluateResponse struct {
	Signal     *contracts.CompositeSignal `json:"signal"`
	Assessment *contracts.RiskAssessment  `json:"assessment"`
}

// Evaluate runs the full pipeline for one symbol
// POST /api/evaluate
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Symbol == "" && req.Series != nil {
		req.Symbol = req.Series.Symbol
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	// A partial config overrides the server's risk config field by field.
	// json.Unmarshal reuses slice capacity, so overlay onto a clone.
	cfg := h.risk.Clone()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid config: "+err.Error())
			return
		}
	}

	sig, assessment, err := h.eval.EvaluateExclusive(r.Context(), evaluator.Request{
		Symbol:    req.Symbol,
		Series:    req.Series,
		Timeframe: req.Timeframe,
		Snapshot:  req.Snapshot,
		Config:    cfg,
		Market:    req.Market,
	})

	var cfgErr *riskconfig.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "invalid risk config",
			"violations": cfgErr.Violations,
		})
		return
	case errors.Is(err, evaluator.ErrEvaluationInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).WithField("symbol", req.Symbol).Error("Evaluation failed")
		respondError(w, http.StatusInternalServerError, "Evaluation failed")
		return
	}

	if h.publisher != nil {
		h.publisher.Publish(contracts.Decision{
			Symbol:      req.Symbol,
			Signal:      sig,
			Assessment:  assessment,
			EvaluatedAt: time.Now().UTC(),
		})
	}

	respondJSON(w, http.StatusOK, EvaluateResponse{Signal: sig, Assessment: assessment})
}

// ValidateConfig checks a risk config and reports warnings
// POST /api/config/validate
func (h *EvaluationHandler) ValidateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := riskconfig.Default()
	if err := decodeJSON(w, r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var cfgErr *riskconfig.ConfigError
	if err := riskconfig.Validate(&cfg); errors.As(err, &cfgErr) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid":      false,
			"violations": cfgErr.Violations,
		})
		return
	}

	hash, err := riskconfig.Hash(&cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash config")
		return
	}

	warnings := riskconfig.Warn(&cfg)
	if warnings == nil {
		warnings = []riskconfig.Warning{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"warnings": warnings,
		"hash":     hash,
	})
}
