package defense

import (
	"math"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

// NeutralRank is the league-middle rank used whenever a value is unknown
const NeutralRank = 16.0

// Weights controls how positional ranks blend into an overall rank
type Weights struct {
	QB float64 `json:"QB"`
	RB float64 `json:"RB"`
	WR float64 `json:"WR"`
	TE float64 `json:"TE"`
}

// DefaultWeights is the split used when configured weights are unusable
var DefaultWeights = Weights{QB: 0.20, RB: 0.40, WR: 0.30, TE: 0.10}

// Normalized clamps invalid weights to zero and rescales them to sum to 1.
// When nothing usable remains the default split is returned.
func (w Weights) Normalized() Weights {
	clean := Weights{
		QB: validWeight(w.QB),
		RB: validWeight(w.RB),
		WR: validWeight(w.WR),
		TE: validWeight(w.TE),
	}

	sum := clean.QB + clean.RB + clean.WR + clean.TE
	if sum <= 0 {
		return DefaultWeights
	}

	return Weights{
		QB: clean.QB / sum,
		RB: clean.RB / sum,
		WR: clean.WR / sum,
		TE: clean.TE / sum,
	}
}

// For returns the normalized weight for a position
func (w Weights) For(pos dfs.Position) float64 {
	switch pos {
	case dfs.PositionQB:
		return w.QB
	case dfs.PositionRB:
		return w.RB
	case dfs.PositionWR:
		return w.WR
	case dfs.PositionTE:
		return w.TE
	default:
		return 0
	}
}

// Overall computes the weighted overall rank from the positional ranks that
// are actually present. Missing positions are excluded from both the
// numerator and the denominator.
func (w Weights) Overall(ranks map[dfs.Position]float64) float64 {
	norm := w.Normalized()

	var weighted, weightSum, plainSum float64
	present := 0
	for pos, rank := range ranks {
		if !isFinite(rank) {
			continue
		}
		weight := norm.For(pos)
		weighted += rank * weight
		weightSum += weight
		plainSum += rank
		present++
	}

	switch {
	case present == 0:
		return NeutralRank
	case weightSum <= 0:
		// only zero-weighted positions reported
		return roundRank(plainSum / float64(present))
	default:
		return roundRank(weighted / weightSum)
	}
}

func validWeight(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func roundRank(v float64) float64 {
	return math.Round(v*100) / 100
}
