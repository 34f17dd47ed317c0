package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/httputil"
	"github.com/wonny/tradegate/pkg/logger"
)

// HTTPSentiment queries a JSON sentiment service:
// GET {base}/sentiment?symbol=X -> {"score": .., "confidence": ..}
type HTTPSentiment struct {
	baseURL string
	client  *httputil.Client
}

// NewHTTPSentiment builds a rate-limited sentiment client
func NewHTTPSentiment(cfg config.CollaboratorConfig, log *logger.Logger) *HTTPSentiment {
	return &HTTPSentiment{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  newCollaboratorClient(cfg, log.WithComponent("sentiment")),
	}
}

func (h *HTTPSentiment) Name() string { return "http-sentiment" }

func (h *HTTPSentiment) Sentiment(ctx context.Context, symbol string) (contracts.SentimentReading, error) {
	var reading contracts.SentimentReading
	endpoint := fmt.Sprintf("%s/sentiment?symbol=%s", h.baseURL, url.QueryEscape(symbol))
	if err := h.client.GetJSON(ctx, endpoint, &reading); err != nil {
		return contracts.SentimentReading{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return reading, nil
}

// HTTPPrediction posts features to a JSON prediction service:
// POST {base}/predict {"symbol": .., "features": {..}} -> {"direction", "confidence", "volatility_level"}
type HTTPPrediction struct {
	baseURL string
	client  *httputil.Client
}

type predictRequest struct {
	Symbol   string             `json:"symbol"`
	Features contracts.Features `json:"features"`
}

// NewHTTPPrediction builds a rate-limited prediction client
func NewHTTPPrediction(cfg config.CollaboratorConfig, log *logger.Logger) *HTTPPrediction {
	return &HTTPPrediction{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  newCollaboratorClient(cfg, log.WithComponent("prediction")),
	}
}

func (h *HTTPPrediction) Name() string { return "http-prediction" }

func (h *HTTPPrediction) Predict(ctx context.Context, features contracts.Features, symbol string) (contracts.Prediction, error) {
	var p contracts.Prediction
	req := predictRequest{Symbol: symbol, Features: features}
	if err := h.client.PostJSON(ctx, h.baseURL+"/predict", req, &p); err != nil {
		return contracts.Prediction{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return p, nil
}

func newCollaboratorClient(cfg config.CollaboratorConfig, log *logger.Logger) *httputil.Client {
	return httputil.New(log).
		WithRetry(cfg.MaxRetries, httputil.DefaultInitialDelay).
		WithRateLimit(cfg.RatePerSecond, cfg.Burst).
		WithHeader("X-API-Key", cfg.APIKey)
}
