package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/evaluator"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/internal/scheduler"
)

type stubEvaluator struct {
	err  error
	last evaluator.Request
}

func (s *stubEvaluator) EvaluateExclusive(_ context.Context, req evaluator.Request) (*contracts.CompositeSignal, *contracts.RiskAssessment, error) {
	s.last = req
	if s.err != nil {
		return nil, nil, s.err
	}
	return &contracts.CompositeSignal{Symbol: req.Symbol, Direction: contracts.DirectionHold},
		&contracts.RiskAssessment{Reason: "no actionable signal", Gate: contracts.GateActionable}, nil
}

type recordingPublisher struct {
	decisions []contracts.Decision
}

func (p *recordingPublisher) Publish(d contracts.Decision) {
	p.decisions = append(p.decisions, d)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestEvaluate_Statuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
	}{
		{"ok", nil, `{"symbol":"btcusdt"}`, http.StatusOK},
		{"symbol from series", nil, `{"series":{"symbol":"ethusdt","timeframe":"1h","bars":[]}}`, http.StatusOK},
		{"missing symbol", nil, `{}`, http.StatusBadRequest},
		{"unknown field", nil, `{"symbol":"X","bogus":1}`, http.StatusBadRequest},
		{"malformed", nil, `{`, http.StatusBadRequest},
		{"busy", evaluator.ErrEvaluationInProgress, `{"symbol":"X"}`, http.StatusConflict},
		{"config", &riskconfig.ConfigError{Violations: []riskconfig.Violation{{Field: "weights", Message: "must sum to 1"}}}, `{"symbol":"X"}`, http.StatusUnprocessableEntity},
		{"internal", errors.New("boom"), `{"symbol":"X"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			h := NewEvaluationHandler(&stubEvaluator{err: tt.err}, riskconfig.Default(), pub, nil)

			rec := post(h.Evaluate, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Len(t, pub.decisions, 1)
			} else {
				assert.Empty(t, pub.decisions)
			}
		})
	}
}

func TestEvaluate_ConfigSelection(t *testing.T) {
	stub := &stubEvaluator{}
	def := riskconfig.Default()
	def.MinTradeValue = 42
	h := NewEvaluationHandler(stub, def, nil, nil)

	rec := post(h.Evaluate, `{"symbol":"sol"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SOL", stub.last.Symbol)
	assert.InDelta(t, 42, stub.last.Config.MinTradeValue, 1e-12)

	rec = post(h.Evaluate, `{"symbol":"sol","config":{"min_trade_value":7}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 7, stub.last.Config.MinTradeValue, 1e-12)
	assert.InDelta(t, 0.05, stub.last.Config.MaxPositionSize, 1e-12, "unset fields keep the server config")

	rec = post(h.Evaluate, `{"symbol":"sol","config":"loose"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluate_ConfigOverrideLeavesServerConfig(t *testing.T) {
	stub := &stubEvaluator{}
	def := riskconfig.Default()
	def.AllowedSymbols = make([]string, 0, 4)
	def.AllowedSymbols = append(def.AllowedSymbols, "BTCUSDT", "ETHUSDT")
	def.BlockedSymbols = []string{"LUNAUSDT"}
	h := NewEvaluationHandler(stub, def, nil, nil)

	rec := post(h.Evaluate, `{"symbol":"xrpusdt","config":{"allowed_symbols":["XRPUSDT"],"blocked_symbols":["DOGEUSDT"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"XRPUSDT"}, stub.last.Config.AllowedSymbols)
	assert.Equal(t, []string{"DOGEUSDT"}, stub.last.Config.BlockedSymbols)

	rec = post(h.Evaluate, `{"symbol":"btcusdt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, stub.last.Config.AllowedSymbols)
	assert.Equal(t, []string{"LUNAUSDT"}, stub.last.Config.BlockedSymbols)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, def.AllowedSymbols, "the shared backing array is not rewritten")
}

func TestEvaluate_ConfigErrorBody(t *testing.T) {
	cfgErr := &riskconfig.ConfigError{Violations: []riskconfig.Violation{{Field: "weights", Message: "must sum to 1"}}}
	h := NewEvaluationHandler(&stubEvaluator{err: cfgErr}, riskconfig.Default(), nil, nil)

	rec := post(h.Evaluate, `{"symbol":"X"}`)
	var body struct {
		Violations []riskconfig.Violation `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "weights", body.Violations[0].Field)
}

func TestValidateConfig(t *testing.T) {
	h := NewEvaluationHandler(&stubEvaluator{}, riskconfig.Default(), nil, nil)

	rec := post(h.ValidateConfig, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Valid    bool                 `json:"valid"`
		Warnings []riskconfig.Warning `json:"warnings"`
		Hash     string               `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Len(t, ok.Hash, 64)

	rec = post(h.ValidateConfig, `{"max_position_size":0.5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_position_size")
}

type stubScheduler struct{}

func (stubScheduler) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{"watchlist_1h": {JobName: "watchlist_1h", TotalRuns: 3}}
}

func (stubScheduler) GetJobHistory(name string) ([]scheduler.JobResult, error) {
	if name != "watchlist_1h" {
		return nil, errors.New("job " + name + " not found")
	}
	return []scheduler.JobResult{{RunID: "r1", JobName: name, Success: true}}, nil
}

func TestJobHandler(t *testing.T) {
	h := NewJobHandler(stubScheduler{})
	r := mux.NewRouter()
	r.HandleFunc("/jobs", h.Stats)
	r.HandleFunc("/jobs/{name}/history", h.History)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_runs":3`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/watchlist_1h/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"r1"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/nope/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
