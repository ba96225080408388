package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

// LeagueAverageTotal stands in for an unreadable over/under
const LeagueAverageTotal = 45.0

// ErrNoGames means the scoreboard produced no usable market contexts
var ErrNoGames = errors.New("market: scoreboard contained no games with odds")

// TeamCanonicalizer maps a provider team code onto the canonical code
type TeamCanonicalizer func(raw string) (string, bool)

// Resolver turns scoreboards into per-team market contexts
type Resolver struct {
	canon TeamCanonicalizer
}

// NewResolver creates a resolver. A nil canonicalizer only uppercases.
func NewResolver(canon TeamCanonicalizer) *Resolver {
	if canon == nil {
		canon = func(raw string) (string, bool) {
			code := dfs.NormalizeTeam(raw)
			return code, code != ""
		}
	}
	return &Resolver{canon: canon}
}

// CanonicalTeam maps a caller's team code onto the code contexts are keyed
// by. Unknown values are only uppercased.
func (r *Resolver) CanonicalTeam(raw string) string {
	if code, ok := r.canon(raw); ok {
		return code
	}
	return dfs.NormalizeTeam(raw)
}

// Parse decodes a scoreboard payload and resolves it. A payload without a
// single usable game is an error so callers keep their previous snapshot.
func (r *Resolver) Parse(payload []byte) (*Index, error) {
	var sb Scoreboard
	if err := json.Unmarshal(payload, &sb); err != nil {
		return nil, fmt.Errorf("failed to decode scoreboard: %w", err)
	}

	idx := r.Resolve(sb)
	if idx.Len() == 0 {
		return nil, ErrNoGames
	}
	return idx, nil
}

// Resolve builds one context per team for every game that has both
// competitors and an odds block. Other games are skipped.
func (r *Resolver) Resolve(sb Scoreboard) *Index {
	var contexts []dfs.MarketContext

	for _, event := range sb.Events {
		for _, comp := range event.Competitions {
			home, away, ok := r.sides(comp.Competitors)
			if !ok {
				continue
			}
			odds, ok := primaryOdds(comp.Odds)
			if !ok {
				continue
			}

			contexts = append(contexts, r.buildGame(event, comp, home, away, odds)...)
		}
	}

	idx := NewIndex(contexts)
	idx.canon = r.canon
	return idx
}

type side struct {
	code string
	team Team
}

func (r *Resolver) sides(competitors []Competitor) (home, away side, ok bool) {
	var haveHome, haveAway bool
	for _, c := range competitors {
		code, valid := r.canon(c.Team.Abbreviation)
		if !valid {
			continue
		}
		switch strings.ToLower(c.HomeAway) {
		case "home":
			home, haveHome = side{code: code, team: c.Team}, true
		case "away":
			away, haveAway = side{code: code, team: c.Team}, true
		}
	}
	return home, away, haveHome && haveAway
}

func primaryOdds(odds []Odds) (Odds, bool) {
	for _, o := range odds {
		if o.Details.Present() || o.OverUnder.Present() || o.Spread.Present() {
			return o, true
		}
	}
	return Odds{}, false
}

func (r *Resolver) buildGame(event Event, comp Competition, home, away side, odds Odds) []dfs.MarketContext {
	total := LeagueAverageTotal
	if n, ok := odds.OverUnder.Number(); ok && isFinite(n) && n > 0 {
		total = n
	}

	homeSpread := r.homeSpread(odds, home, away)
	homeImplied := round2(total/2 - homeSpread/2)
	awayImplied := round2(total/2 + homeSpread/2)

	kickoff := parseKickoff(comp.Date, event.Date)

	var venue, broadcast *string
	if comp.Venue != nil && comp.Venue.FullName != "" {
		v := comp.Venue.FullName
		venue = &v
	}
	if b := broadcastName(comp.Broadcasts); b != "" {
		broadcast = &b
	}

	homeCtx := dfs.MarketContext{
		Team:                 home.code,
		Opponent:             away.code,
		Home:                 true,
		ImpliedTotal:         &homeImplied,
		OpponentImpliedTotal: &awayImplied,
		OverUnder:            total,
		Spread:               zeroSafe(homeSpread),
		OpponentSpread:       zeroSafe(-homeSpread),
		Kickoff:              kickoff,
		Venue:                venue,
		Broadcast:            broadcast,
	}
	awayCtx := dfs.MarketContext{
		Team:                 away.code,
		Opponent:             home.code,
		Home:                 false,
		ImpliedTotal:         &awayImplied,
		OpponentImpliedTotal: &homeImplied,
		OverUnder:            total,
		Spread:               zeroSafe(-homeSpread),
		OpponentSpread:       zeroSafe(homeSpread),
		Kickoff:              kickoff,
		Venue:                venue,
		Broadcast:            broadcast,
	}
	return []dfs.MarketContext{homeCtx, awayCtx}
}

// homeSpread returns the home team's signed line (negative = favored).
// A text descriptor names the favorite; a bare number is read as the home
// line. A favorite that matches neither side is treated as home.
func (r *Resolver) homeSpread(odds Odds, home, away side) float64 {
	for _, field := range []FlexValue{odds.Details, odds.Spread} {
		if !field.Present() {
			continue
		}
		if n, ok := field.Number(); ok {
			if isFinite(n) {
				return n
			}
			continue
		}

		token, magnitude, ok := ParseDescriptor(field.String())
		if !ok {
			continue
		}
		if magnitude == 0 {
			return 0
		}
		if r.matches(token, away) && !r.matches(token, home) {
			return magnitude
		}
		return -magnitude
	}
	return 0
}

func (r *Resolver) matches(token string, s side) bool {
	if token == "" {
		return false
	}
	if code, ok := r.canon(token); ok && code == s.code {
		return true
	}
	return strings.EqualFold(token, s.team.Abbreviation) ||
		(s.team.DisplayName != "" && strings.EqualFold(token, s.team.DisplayName))
}

// ParseDescriptor splits "KC -3.5" into the favored token and the absolute
// line. "EVEN" and "PK" are zero lines with no favorite.
func ParseDescriptor(descriptor string) (token string, magnitude float64, ok bool) {
	fields := strings.Fields(strings.TrimSpace(descriptor))
	if len(fields) == 0 {
		return "", 0, false
	}

	switch strings.ToUpper(strings.Join(fields, "")) {
	case "EVEN", "PK", "PICK", "PICKEM", "PICK'EM":
		return "", 0, true
	}

	for i := len(fields) - 1; i >= 0; i-- {
		n, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || !isFinite(n) {
			continue
		}
		return strings.Join(fields[:i], " "), math.Abs(n), true
	}
	return "", 0, false
}

func broadcastName(broadcasts []Broadcast) string {
	for _, b := range broadcasts {
		if len(b.Names) > 0 {
			return strings.Join(b.Names, "/")
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func zeroSafe(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Index is a team-keyed snapshot of market contexts
type Index struct {
	byTeam   map[string]dfs.MarketContext
	contexts []dfs.MarketContext
	canon    TeamCanonicalizer
}

// NewIndex indexes contexts by team; later duplicates replace earlier ones
func NewIndex(contexts []dfs.MarketContext) *Index {
	idx := &Index{byTeam: make(map[string]dfs.MarketContext, len(contexts))}
	for _, c := range contexts {
		idx.byTeam[c.Team] = c
	}

	idx.contexts = make([]dfs.MarketContext, 0, len(idx.byTeam))
	for _, c := range idx.byTeam {
		idx.contexts = append(idx.contexts, c)
	}
	sort.Slice(idx.contexts, func(i, j int) bool {
		a, b := idx.contexts[i], idx.contexts[j]
		switch {
		case a.Kickoff != nil && b.Kickoff != nil && !a.Kickoff.Equal(*b.Kickoff):
			return a.Kickoff.Before(*b.Kickoff)
		case (a.Kickoff == nil) != (b.Kickoff == nil):
			return a.Kickoff != nil
		default:
			return a.Team < b.Team
		}
	})
	return idx
}

// Lookup returns the context for a team. Variant codes ("WSH") resolve
// through the canonicalizer of the resolver that built the index.
func (i *Index) Lookup(team string) (dfs.MarketContext, bool) {
	if i == nil {
		return dfs.MarketContext{}, false
	}
	if c, ok := i.byTeam[dfs.NormalizeTeam(team)]; ok {
		return c, true
	}
	if i.canon != nil {
		if code, ok := i.canon(team); ok {
			c, found := i.byTeam[code]
			return c, found
		}
	}
	return dfs.MarketContext{}, false
}

// All returns every context ordered by kickoff then team
func (i *Index) All() []dfs.MarketContext {
	if i == nil {
		return nil
	}
	out := make([]dfs.MarketContext, len(i.contexts))
	copy(out, i.contexts)
	return out
}

// Len reports the number of teams covered
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byTeam)
}

func (i *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.All())
}

func (i *Index) UnmarshalJSON(data []byte) error {
	var contexts []dfs.MarketContext
	if err := json.Unmarshal(data, &contexts); err != nil {
		return err
	}
	*i = *NewIndex(contexts)
	return nil
}
