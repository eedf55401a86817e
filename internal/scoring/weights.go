// Package scoring turns trend records into decaying popularity increments on
// matching news records.
package scoring

import (
	"math"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/store"
	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Weights is the scoring weight table. It is passed to the engine explicitly
// so runs can use overrides or synthetic tables.
type Weights struct {
	BaseScore       float64
	CategoryWeights map[string]float64
	RelatedWeight   float64
	DecayFactor     float64
}

// NewWeights builds Weights from configuration.
func NewWeights(cfg *config.ScoringConfig) Weights {
	cats := make(map[string]float64, len(cfg.CategoryWeights))
	for k, v := range cfg.CategoryWeights {
		cats[k] = v
	}
	return Weights{
		BaseScore:       cfg.BaseScore,
		CategoryWeights: cats,
		RelatedWeight:   cfg.RelatedWeight,
		DecayFactor:     cfg.DecayFactor,
	}
}

// ScopeFromConfig returns the candidate scope configured for scoring runs.
func ScopeFromConfig(cfg *config.ScoringConfig) store.Scope {
	return store.Scope{Window: cfg.Window, Limit: cfg.Limit}
}

// RankWeight rewards top positions: 1.1 for ranks 1-5, 1.05 for 6-10 and
// 1.0 below that.
func RankWeight(rank int) float64 {
	switch {
	case rank <= 5:
		return 1.1
	case rank <= 10:
		return 1.05
	default:
		return 1.0
	}
}

// MainKeywordWeight lowers the main keyword's weight as the number of related
// keywords grows, never below 0.7.
func MainKeywordWeight(relatedCount int) float64 {
	return math.Max(1.2-0.1*float64(relatedCount), 0.7)
}

// CategoryWeight returns the weight for category, 1.0 when unknown.
func (w Weights) CategoryWeight(category string) float64 {
	if v, ok := w.CategoryWeights[category]; ok {
		return v
	}
	return 1.0
}

// MainScore is the undecayed score of a record's main keyword.
func (w Weights) MainScore(rec types.TrendRecord) float64 {
	return w.BaseScore *
		w.CategoryWeight(rec.Category) *
		RankWeight(rec.Rank) *
		MainKeywordWeight(len(rec.RelatedKeywords))
}

// Decay scales weight down for a record already boosted status times.
func (w Weights) Decay(weight float64, status int) float64 {
	if status < 0 {
		status = 0
	}
	return weight * math.Pow(w.DecayFactor, float64(status))
}
