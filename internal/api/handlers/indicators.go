package handlers

import (
	"net/http"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/signals"
	"github.com/wonny/tradegate/pkg/logger"
)

// IndicatorHandler exposes the technical verdict without fusion or risk
type IndicatorHandler struct {
	generator *signals.Generator
	logger    *logger.Logger
}

// NewIndicatorHandler creates a handler over a signal generator
func NewIndicatorHandler(gen *signals.Generator, log *logger.Logger) *IndicatorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &IndicatorHandler{generator: gen, logger: log}
}

// Compute returns indicator values, patterns and rule signals for a series
// POST /api/indicators
func (h *IndicatorHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var series contracts.PriceSeries
	if err := decodeJSON(w, r, &series); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := series.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdict := h.generator.Generate(&series)
	h.logger.WithFields(map[string]interface{}{
		"symbol":     series.Symbol,
		"bars":       series.Len(),
		"components": len(verdict.Components),
	}).Debug("Indicators computed")

	respondJSON(w, http.StatusOK, verdict)
}
