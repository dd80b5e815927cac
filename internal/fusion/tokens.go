package fusion

import (
	"github.com/pkoukk/tiktoken-go"
)

// Estimator approximates the token footprint of prompt text.
type Estimator interface {
	Estimate(text string) int
}

// TiktokenEstimator counts tokens with the model's own encoding, falling
// back to a length heuristic when the encoding is unavailable (offline
// environments cannot fetch encoding data).
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator(model string) *TiktokenEstimator {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	return &TiktokenEstimator{enc: enc}
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// HeuristicEstimator is the pure fallback estimator, roughly four
// characters per token.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(text string) int { return len(text) / 4 }
