package scoring

import (
	"math"
	"strings"
)

// Bucket groups statistics that describe the same kind of signal
type Bucket string

const (
	BucketOpportunity Bucket = "opportunity"
	BucketEfficiency  Bucket = "efficiency"
	BucketLeverage    Bucket = "leverage"
	BucketProduction  Bucket = "production"
)

// Buckets in the order they are reported
var Buckets = []Bucket{BucketOpportunity, BucketEfficiency, BucketLeverage, BucketProduction}

// Normalization rescales a raw stat value before weighting
type Normalization int

const (
	NormalizeNone Normalization = iota
	// NormalizePercent turns 0-100 percentages into fractions; values <= 1
	// are assumed to be fractions already
	NormalizePercent
	// NormalizePerTen divides counts such as routes or yards by ten
	NormalizePerTen
)

// Transform reshapes a normalized value
type Transform int

const (
	TransformNone Transform = iota
	// TransformInvert scores a rate where lower is better as 1-v
	TransformInvert
	// TransformRank turns a rank (1 best) into 1-rank/100
	TransformRank
)

// Rule assigns matching stats to a bucket. A stat matches when its name
// contains any key, case-insensitively.
type Rule struct {
	Name          string
	Keys          []string
	Bucket        Bucket
	Weight        float64
	Normalization Normalization
	Transform     Transform
}

// Matches reports whether the lowercased stat name hits one of the keys
func (r Rule) Matches(stat string) bool {
	for _, key := range r.Keys {
		if strings.Contains(stat, key) {
			return true
		}
	}
	return false
}

// Apply returns the rule's weighted contribution for a raw value
func (r Rule) Apply(value float64) float64 {
	switch r.Normalization {
	case NormalizePercent:
		if value > 1 {
			value /= 100
		}
	case NormalizePerTen:
		value /= 10
	}

	switch r.Transform {
	case TransformInvert:
		value = math.Max(0, 1-value)
	case TransformRank:
		value = math.Max(0, 1-value/100)
	}

	return value * r.Weight
}

// DefaultRules is evaluated top to bottom and the first match wins. Order
// matters: "yards per route" must hit the efficiency rule before the route
// and yards rules, "red zone targets" before targets, and shares before raw
// counts.
var DefaultRules = []Rule{
	{Name: "yards_per_route", Keys: []string{"yprr", "yards per route", "yards_per_route", "yds/route"}, Bucket: BucketEfficiency, Weight: 0.6},
	{Name: "target_share", Keys: []string{"target_share", "target share", "tgt_share", "tgt share", "target%", "tgt%"}, Bucket: BucketOpportunity, Weight: 1.0, Normalization: NormalizePercent},
	{Name: "rush_share", Keys: []string{"rush_share", "rush share", "carry_share", "carry share", "rush%"}, Bucket: BucketOpportunity, Weight: 1.0, Normalization: NormalizePercent},
	{Name: "snap_share", Keys: []string{"snap"}, Bucket: BucketOpportunity, Weight: 0.8, Normalization: NormalizePercent},
	{Name: "routes", Keys: []string{"route"}, Bucket: BucketOpportunity, Weight: 0.2, Normalization: NormalizePerTen},
	{Name: "red_zone", Keys: []string{"red_zone", "redzone", "red zone", "rz_"}, Bucket: BucketOpportunity, Weight: 0.5},
	{Name: "targets", Keys: []string{"targets", "tgt"}, Bucket: BucketOpportunity, Weight: 0.15},
	{Name: "carries", Keys: []string{"carries", "rush_att", "rush att", "attempts"}, Bucket: BucketOpportunity, Weight: 0.1},
	{Name: "drop_rate", Keys: []string{"drop"}, Bucket: BucketEfficiency, Weight: 0.5, Normalization: NormalizePercent, Transform: TransformInvert},
	{Name: "catch_rate", Keys: []string{"catch", "completion", "comp%", "success"}, Bucket: BucketEfficiency, Weight: 0.8, Normalization: NormalizePercent},
	{Name: "yards_per_touch", Keys: []string{"ypc", "ypa", "ypt", "yards per carry", "yards_per_carry", "yards per attempt", "yards_per_attempt", "yards per target"}, Bucket: BucketEfficiency, Weight: 0.2},
	{Name: "epa", Keys: []string{"epa"}, Bucket: BucketEfficiency, Weight: 1.0},
	{Name: "grade", Keys: []string{"grade", "pff"}, Bucket: BucketEfficiency, Weight: 1.0, Normalization: NormalizePercent},
	{Name: "rank", Keys: []string{"ecr", "adp", "rank"}, Bucket: BucketLeverage, Weight: 1.0, Transform: TransformRank},
	{Name: "rostered", Keys: []string{"roster", "owned", "ownership"}, Bucket: BucketLeverage, Weight: 0.8, Normalization: NormalizePercent, Transform: TransformInvert},
	{Name: "vacated", Keys: []string{"vacated", "opening"}, Bucket: BucketLeverage, Weight: 0.6, Normalization: NormalizePercent},
	{Name: "fantasy_points", Keys: []string{"fantasy_points", "fantasy points", "fpts", "ppr", "points", "fppg"}, Bucket: BucketProduction, Weight: 0.08},
	{Name: "yards", Keys: []string{"yards", "yds", "yardage"}, Bucket: BucketProduction, Weight: 0.1, Normalization: NormalizePerTen},
	{Name: "touchdowns", Keys: []string{"touchdown", "td"}, Bucket: BucketProduction, Weight: 0.5},
	{Name: "receptions", Keys: []string{"reception", "rec"}, Bucket: BucketProduction, Weight: 0.15},
}

// MatchRule returns the first rule in rules that matches stat
func MatchRule(rules []Rule, stat string) (Rule, bool) {
	key := strings.ToLower(strings.TrimSpace(stat))
	if key == "" {
		return Rule{}, false
	}
	for _, rule := range rules {
		if rule.Matches(key) {
			return rule, true
		}
	}
	return Rule{}, false
}
