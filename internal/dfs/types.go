package dfs

import (
	"strings"
	"time"
)

// Position is a fantasy-relevant roster slot
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionK   Position = "K"
	PositionDST Position = "DST"
)

// ParsePosition maps provider spellings onto a Position
func ParsePosition(raw string) (Position, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "QB":
		return PositionQB, true
	case "RB", "HB", "FB":
		return PositionRB, true
	case "WR":
		return PositionWR, true
	case "TE":
		return PositionTE, true
	case "K", "PK":
		return PositionK, true
	case "DST", "DEF", "D/ST", "D":
		return PositionDST, true
	default:
		return "", false
	}
}

// ProjectionMode selects the scoring horizon
type ProjectionMode string

const (
	ModeWeek ProjectionMode = "week"
	ModeROS  ProjectionMode = "ros"
)

// ParseProjectionMode defaults to the weekly horizon for unknown input
func ParseProjectionMode(raw string) ProjectionMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ros", "rest-of-season", "season":
		return ModeROS
	default:
		return ModeWeek
	}
}

// DefenseRankEntry is one team's defensive ranking, overall and per position.
// Lower numbers are tougher matchups.
type DefenseRankEntry struct {
	TeamAbbr string  `json:"teamAbbr"`
	Overall  float64 `json:"overall"`
	QB       float64 `json:"QB"`
	RB       float64 `json:"RB"`
	WR       float64 `json:"WR"`
	TE       float64 `json:"TE"`
}

// RankFor returns the rank that applies to a player at pos. Positions
// without a dedicated column use the overall rank.
func (e DefenseRankEntry) RankFor(pos Position) float64 {
	switch pos {
	case PositionQB:
		return e.QB
	case PositionRB:
		return e.RB
	case PositionWR:
		return e.WR
	case PositionTE:
		return e.TE
	default:
		return e.Overall
	}
}

// MarketContext is the betting-market view of one team's game
type MarketContext struct {
	Team                 string     `json:"team"`
	Opponent             string     `json:"opponent"`
	Home                 bool       `json:"home"`
	ImpliedTotal         *float64   `json:"impliedTotal"`
	OpponentImpliedTotal *float64   `json:"opponentImpliedTotal"`
	OverUnder            float64    `json:"overUnder"`
	Spread               float64    `json:"spread"`
	OpponentSpread       float64    `json:"opponentSpread"`
	Kickoff              *time.Time `json:"kickoff"`
	Venue                *string    `json:"venue"`
	Broadcast            *string    `json:"broadcast"`
}

// PlayerDirectoryEntry is a searchable player record
type PlayerDirectoryEntry struct {
	ID          string   `json:"id"`
	FullName    string   `json:"fullName"`
	Team        string   `json:"team"`
	Position    Position `json:"position"`
	SearchKey   string   `json:"searchKey"`
	LastNameKey string   `json:"lastNameKey"`
}

// PlayerInput is the caller-supplied player record to be scored
type PlayerInput struct {
	Name     string             `json:"name"`
	Position string             `json:"position"`
	Team     string             `json:"team"`
	Opponent string             `json:"opponent"`
	Stats    map[string]float64 `json:"stats"`
}

// ScoredPlayer is a PlayerInput with its resolved context and score
type ScoredPlayer struct {
	PlayerInput
	Weather      *string  `json:"weather"`
	DefRank      float64  `json:"defRank"`
	ImpliedTotal float64  `json:"impliedTotal"`
	OverUnder    *float64 `json:"overUnder"`
	Spread       *float64 `json:"spread"`
	Score        float64  `json:"score"`
}

// NewsItem is one headline from a news feed
type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

// TrendingPlayer is a waiver-add trend entry
type TrendingPlayer struct {
	PlayerID string `json:"player_id"`
	Count    int    `json:"count"`
}

// NormalizeTeam uppercases and trims a team code
func NormalizeTeam(team string) string {
	return strings.ToUpper(strings.TrimSpace(team))
}
