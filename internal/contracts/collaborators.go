package contracts

// SentimentReading is the sentiment collaborator output
type SentimentReading struct {
	Score      float64 `json:"score"`      // -1 .. 1
	Confidence float64 `json:"confidence"` // 0 .. 1
}

// Prediction is the prediction collaborator output
type Prediction struct {
	Direction  Direction       `json:"direction"`
	Confidence float64         `json:"confidence"`
	Volatility VolatilityLevel `json:"volatility_level"`
}

// Features is the named feature vector handed to a prediction provider
type Features map[string]float64
