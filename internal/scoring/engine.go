// Package scoring turns a player's stats plus matchup context into a
// composite 0-100 waiver score.
package scoring

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

const (
	neutralDefRank     = 16.0
	leagueAverageTeam  = 22.5
	leagueAverageTotal = 45.0
	rosFloorWeight     = 0.2
)

// Context is the resolved matchup information for one player
type Context struct {
	// DefRank is the opponent's rank against the player's position; zero
	// means unknown and is treated as neutral
	DefRank      float64
	ImpliedTotal *float64
	OverUnder    *float64
	Spread       *float64
	Weather      *string
	Mode         dfs.ProjectionMode
}

// Config holds the engine's tuning constants
type Config struct {
	BucketNorms         map[Bucket]float64
	BucketWeights       map[Bucket]float64
	PositionMultipliers map[dfs.Position]float64
	ContextScale        map[dfs.ProjectionMode]float64
}

// DefaultConfig is the tuning used in production
func DefaultConfig() Config {
	return Config{
		BucketNorms: map[Bucket]float64{
			BucketOpportunity: 3.0,
			BucketEfficiency:  2.5,
			BucketLeverage:    2.0,
			BucketProduction:  4.0,
		},
		BucketWeights: map[Bucket]float64{
			BucketOpportunity: 0.35,
			BucketEfficiency:  0.25,
			BucketLeverage:    0.15,
			BucketProduction:  0.25,
		},
		PositionMultipliers: map[dfs.Position]float64{
			dfs.PositionQB: 1.04,
			dfs.PositionTE: 0.96,
		},
		ContextScale: map[dfs.ProjectionMode]float64{
			dfs.ModeWeek: 1.0,
			dfs.ModeROS:  0.5,
		},
	}
}

// Engine scores players. It holds no mutable state and is safe to share.
type Engine struct {
	rules []Rule
	cfg   Config
}

// NewEngine creates an engine with the default rules and tuning
func NewEngine() *Engine {
	return NewEngineWith(DefaultRules, DefaultConfig())
}

// NewEngineWith creates an engine with a custom rule table
func NewEngineWith(rules []Rule, cfg Config) *Engine {
	return &Engine{rules: rules, cfg: cfg}
}

// BucketScore is one bucket's raw total and its clamped normalized value
type BucketScore struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
}

// StatMatch records which rule consumed a stat
type StatMatch struct {
	Stat         string  `json:"stat"`
	Rule         string  `json:"rule"`
	Bucket       Bucket  `json:"bucket"`
	Contribution float64 `json:"contribution"`
}

// Adjustments are the additive context terms before mode scaling
type Adjustments struct {
	ImpliedTotal float64 `json:"impliedTotal"`
	OverUnder    float64 `json:"overUnder"`
	Spread       float64 `json:"spread"`
	Defense      float64 `json:"defense"`
	Rain         float64 `json:"rain"`
	Temperature  float64 `json:"temperature"`
}

// Sum adds every adjustment
func (a Adjustments) Sum() float64 {
	return a.ImpliedTotal + a.OverUnder + a.Spread + a.Defense + a.Rain + a.Temperature
}

// Breakdown explains how a score was reached
type Breakdown struct {
	Mode               dfs.ProjectionMode     `json:"mode"`
	Buckets            map[Bucket]BucketScore `json:"buckets"`
	Matched            []StatMatch            `json:"matched"`
	Unmatched          []string               `json:"unmatched"`
	Base               float64                `json:"base"`
	PositionMultiplier float64                `json:"positionMultiplier"`
	Adjustments        Adjustments            `json:"adjustments"`
	ContextScale       float64                `json:"contextScale"`
	Floor              float64                `json:"floor"`
	Score              float64                `json:"score"`
}

// Score returns the composite score in [0,100], rounded to one decimal
func (e *Engine) Score(player dfs.PlayerInput, ctx Context) float64 {
	return e.Explain(player, ctx).Score
}

// Explain scores a player and returns every intermediate term
func (e *Engine) Explain(player dfs.PlayerInput, ctx Context) Breakdown {
	mode := ctx.Mode
	if mode != dfs.ModeROS {
		mode = dfs.ModeWeek
	}

	b := Breakdown{
		Mode:    mode,
		Buckets: make(map[Bucket]BucketScore, len(Buckets)),
	}

	totals := e.bucketTotals(player.Stats, &b)

	for _, bucket := range Buckets {
		raw := totals[bucket]
		normalized := 0.0
		if norm := e.cfg.BucketNorms[bucket]; norm > 0 {
			normalized = clamp(raw/norm, 0, 1)
		}
		b.Buckets[bucket] = BucketScore{Raw: raw, Normalized: normalized}
		b.Base += normalized * e.cfg.BucketWeights[bucket] * 100
	}

	b.PositionMultiplier = 1.0
	if pos, ok := dfs.ParsePosition(player.Position); ok {
		if m, ok := e.cfg.PositionMultipliers[pos]; ok {
			b.PositionMultiplier = m
		}
	}

	b.Adjustments = adjustments(ctx)
	b.ContextScale = e.cfg.ContextScale[mode]

	score := b.Base*b.PositionMultiplier + b.Adjustments.Sum()*b.ContextScale

	if mode == dfs.ModeROS {
		b.Floor = b.Buckets[BucketProduction].Normalized * 100
		score = (1-rosFloorWeight)*score + rosFloorWeight*b.Floor
	}

	b.Score = finalize(score)
	return b
}

// bucketTotals walks stats in name order so float sums are reproducible
func (e *Engine) bucketTotals(stats map[string]float64, b *Breakdown) map[Bucket]float64 {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	totals := make(map[Bucket]float64, len(Buckets))
	for _, name := range names {
		value := stats[name]
		if !isFinite(value) {
			continue
		}
		rule, ok := MatchRule(e.rules, name)
		if !ok {
			b.Unmatched = append(b.Unmatched, name)
			continue
		}
		contribution := rule.Apply(value)
		if !isFinite(contribution) {
			continue
		}
		totals[rule.Bucket] += contribution
		b.Matched = append(b.Matched, StatMatch{
			Stat:         name,
			Rule:         rule.Name,
			Bucket:       rule.Bucket,
			Contribution: contribution,
		})
	}
	return totals
}

func adjustments(ctx Context) Adjustments {
	var adj Adjustments

	if ctx.ImpliedTotal != nil && isFinite(*ctx.ImpliedTotal) && *ctx.ImpliedTotal > 0 {
		adj.ImpliedTotal = clamp((*ctx.ImpliedTotal-leagueAverageTeam)*0.8, -6, 6)
	}
	if ctx.OverUnder != nil && isFinite(*ctx.OverUnder) && *ctx.OverUnder > 0 {
		adj.OverUnder = clamp((*ctx.OverUnder-leagueAverageTotal)*0.15, -3, 3)
	}
	if ctx.Spread != nil && isFinite(*ctx.Spread) {
		// negative spread = favored
		adj.Spread = clamp(-*ctx.Spread*0.3, -2, 3)
	}

	defRank := ctx.DefRank
	if !isFinite(defRank) || defRank <= 0 {
		defRank = neutralDefRank
	}
	adj.Defense = clamp((defRank-neutralDefRank)*0.25, -4, 4)

	if ctx.Weather != nil {
		if temp, rain, ok := ParseWeather(*ctx.Weather); ok {
			switch {
			case rain > 70:
				adj.Rain = -6
			case rain > 40:
				adj.Rain = -3
			}
			switch {
			case temp < 32:
				adj.Temperature = -3
			case temp > 90:
				adj.Temperature = -2
			}
		}
	}

	return adj
}

var weatherPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*F\s*/\s*(\d+(?:\.\d+)?)\s*%`)

// ParseWeather reads a "<F>°F / <pct>% rain" summary
func ParseWeather(summary string) (tempF, rainPct float64, ok bool) {
	m := weatherPattern.FindStringSubmatch(strings.ToUpper(summary))
	if m == nil {
		return 0, 0, false
	}
	tempF, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	rainPct, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return tempF, rainPct, true
}

func finalize(score float64) float64 {
	if !isFinite(score) {
		return 0
	}
	return math.Round(clamp(score, 0, 100)*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
