package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/defense"
	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/market"
	"github.com/stitts-dev/waiver-ranker/internal/scoring"
)

// ScoringService attaches context to player records and scores them
type ScoringService struct {
	context *ContextService
	defense *DefenseService
	engine  *scoring.Engine
	logger  *logrus.Logger
}

func NewScoringService(contextService *ContextService, defenseService *DefenseService, engine *scoring.Engine, logger *logrus.Logger) *ScoringService {
	return &ScoringService{
		context: contextService,
		defense: defenseService,
		engine:  engine,
		logger:  logger,
	}
}

// ScorePlayers scores every input and returns them best first. Missing
// context degrades to neutral values; only a cancelled context fails.
func (s *ScoringService) ScorePlayers(ctx context.Context, inputs []dfs.PlayerInput, mode dfs.ProjectionMode) ([]dfs.ScoredPlayer, error) {
	idx := s.marketIndex(ctx)

	scored := make([]dfs.ScoredPlayer, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		player, scoringCtx := s.resolve(ctx, idx, input, mode)
		player.Score = s.engine.Score(player.PlayerInput, scoringCtx)
		scored = append(scored, player)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	s.logger.WithFields(logrus.Fields{
		"component": "scoring",
		"players":   len(scored),
		"mode":      mode,
	}).Debug("Scored players")

	return scored, nil
}

// Explain scores one player and returns the breakdown
func (s *ScoringService) Explain(ctx context.Context, input dfs.PlayerInput, mode dfs.ProjectionMode) (dfs.ScoredPlayer, scoring.Breakdown) {
	player, scoringCtx := s.resolve(ctx, s.marketIndex(ctx), input, mode)
	breakdown := s.engine.Explain(player.PlayerInput, scoringCtx)
	player.Score = breakdown.Score
	return player, breakdown
}

func (s *ScoringService) marketIndex(ctx context.Context) *market.Index {
	idx, err := s.context.Market(ctx)
	if err != nil {
		s.logger.WithField("component", "scoring").WithError(err).
			Warn("Market data unavailable, scoring without odds")
		return nil
	}
	return idx
}

func (s *ScoringService) resolve(ctx context.Context, idx *market.Index, input dfs.PlayerInput, mode dfs.ProjectionMode) (dfs.ScoredPlayer, scoring.Context) {
	if input.Team != "" {
		input.Team = s.context.CanonicalTeam(input.Team)
	}
	if input.Opponent != "" {
		input.Opponent = s.defense.CanonicalTeam(input.Opponent)
	}

	player := dfs.ScoredPlayer{PlayerInput: input, DefRank: defense.NeutralRank}
	scoringCtx := scoring.Context{Mode: mode, DefRank: defense.NeutralRank}

	var mcp *dfs.MarketContext
	if mc, ok := idx.Lookup(input.Team); ok && input.Team != "" {
		mcp = &mc
		if player.Opponent == "" {
			player.Opponent = mc.Opponent
		}
		if mc.ImpliedTotal != nil {
			player.ImpliedTotal = *mc.ImpliedTotal
			scoringCtx.ImpliedTotal = mc.ImpliedTotal
		}
		overUnder, spread := mc.OverUnder, mc.Spread
		player.OverUnder = &overUnder
		player.Spread = &spread
		scoringCtx.OverUnder = &overUnder
		scoringCtx.Spread = &spread
	}

	if player.Opponent != "" {
		pos, _ := dfs.ParsePosition(input.Position)
		player.DefRank = s.defense.RankFor(player.Opponent, pos)
		scoringCtx.DefRank = player.DefRank
	}

	if input.Team != "" {
		weather, err := s.context.WeatherFor(ctx, input.Team, mcp)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"component": "scoring",
				"team":      input.Team,
			}).WithError(err).Debug("Weather unavailable")
		}
		player.Weather = weather
		scoringCtx.Weather = weather
	}

	return player, scoringCtx
}
