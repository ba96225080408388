package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/market"
	"github.com/stitts-dev/waiver-ranker/internal/players"
	"github.com/stitts-dev/waiver-ranker/internal/providers"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

const (
	scoreboardKey     = "nfl"
	directoryKey      = "nfl"
	newsKey           = "nfl"
	trendingLookback  = 24
	trendingFetchSize = 50
)

// ScoreboardSource returns raw scoreboard payloads
type ScoreboardSource interface {
	Scoreboard(ctx context.Context) ([]byte, error)
}

// WeatherSource returns a stadium forecast summary, nil for indoor venues
type WeatherSource interface {
	ForecastForTeam(ctx context.Context, team string, kickoff *time.Time) (*string, error)
}

// PlayerSource returns the raw player directory and add trends
type PlayerSource interface {
	Players(ctx context.Context) (map[string]players.RawPlayer, error)
	TrendingAdds(ctx context.Context, lookbackHours, limit int) ([]dfs.TrendingPlayer, error)
}

// NewsSource returns headlines
type NewsSource interface {
	Headlines(ctx context.Context) ([]dfs.NewsItem, error)
}

// ContextService answers context questions from the shared caches,
// loading from upstream providers on a miss
type ContextService struct {
	caches   *ContextCaches
	espn     ScoreboardSource
	weather  WeatherSource
	players  PlayerSource
	news     NewsSource
	resolver *market.Resolver
	logger   *logrus.Logger

	newsFallbackOnce     sync.Once
	trendingFallbackOnce sync.Once
}

func NewContextService(
	caches *ContextCaches,
	espn ScoreboardSource,
	weather WeatherSource,
	playerSource PlayerSource,
	news NewsSource,
	resolver *market.Resolver,
	logger *logrus.Logger,
) *ContextService {
	return &ContextService{
		caches:   caches,
		espn:     espn,
		weather:  weather,
		players:  playerSource,
		news:     news,
		resolver: resolver,
		logger:   logger,
	}
}

// Market returns the current market index
func (s *ContextService) Market(ctx context.Context) (*market.Index, error) {
	return s.caches.Scoreboard.Get(ctx, scoreboardKey, func(ctx context.Context) (*market.Index, error) {
		payload, err := s.espn.Scoreboard(ctx)
		if err != nil {
			return nil, err
		}
		return s.resolver.Parse(payload)
	})
}

// CanonicalTeam maps a caller's team code ("WSH", "Jaguars") onto the
// code market contexts and stadiums are keyed by
func (s *ContextService) CanonicalTeam(team string) string {
	return s.resolver.CanonicalTeam(team)
}

// MarketFor returns one team's market context. Upstream failures read as
// an unknown team.
func (s *ContextService) MarketFor(ctx context.Context, team string) (dfs.MarketContext, bool) {
	idx, err := s.Market(ctx)
	if err != nil {
		s.log("market").WithError(err).Warn("Market data unavailable")
		return dfs.MarketContext{}, false
	}
	return idx.Lookup(s.CanonicalTeam(team))
}

// WeatherFor returns the forecast for the game team plays in. Without a
// market context the team's own stadium and the next available hour are
// used. Indoor venues return nil.
func (s *ContextService) WeatherFor(ctx context.Context, team string, mc *dfs.MarketContext) (*string, error) {
	venueTeam := s.CanonicalTeam(team)
	var kickoff *time.Time

	if mc != nil {
		if !mc.Home && mc.Opponent != "" {
			venueTeam = mc.Opponent
		}
		kickoff = mc.Kickoff
	}

	stadium, ok := providers.StadiumFor(venueTeam)
	if !ok || stadium.Indoor {
		return nil, nil
	}

	key := venueTeam
	if kickoff != nil {
		key = fmt.Sprintf("%s:%s", venueTeam, kickoff.UTC().Truncate(time.Hour).Format("2006010215"))
	}

	summary, err := s.caches.Weather.Get(ctx, key, func(ctx context.Context) (string, error) {
		forecast, err := s.weather.ForecastForTeam(ctx, venueTeam, kickoff)
		if err != nil {
			return "", err
		}
		if forecast == nil {
			return "", nil
		}
		return *forecast, nil
	})
	if err != nil {
		return nil, err
	}
	if summary == "" {
		return nil, nil
	}
	return &summary, nil
}

// WeatherForTeam looks up the team's game and returns its forecast
func (s *ContextService) WeatherForTeam(ctx context.Context, team string) (*string, error) {
	var mcp *dfs.MarketContext
	if mc, ok := s.MarketFor(ctx, team); ok {
		mcp = &mc
	}
	return s.WeatherFor(ctx, team, mcp)
}

// Directory returns the searchable player directory
func (s *ContextService) Directory(ctx context.Context) ([]dfs.PlayerDirectoryEntry, error) {
	return s.caches.Directory.Get(ctx, directoryKey, func(ctx context.Context) ([]dfs.PlayerDirectoryEntry, error) {
		raw, err := s.players.Players(ctx)
		if err != nil {
			return nil, err
		}
		entries := players.BuildDirectory(raw)
		if len(entries) == 0 {
			return nil, errors.New("player directory contained no fantasy players")
		}
		return entries, nil
	})
}

// SearchPlayers returns up to limit directory matches for query
func (s *ContextService) SearchPlayers(ctx context.Context, query string, limit int) ([]players.Candidate, error) {
	directory, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	return players.Match(query, directory, limit), nil
}

// BestPlayer returns the strongest directory match for query
func (s *ContextService) BestPlayer(ctx context.Context, query string) (players.Candidate, bool, error) {
	directory, err := s.Directory(ctx)
	if err != nil {
		return players.Candidate{}, false, err
	}
	best, ok := players.Best(query, directory)
	return best, ok, nil
}

// News returns cached headlines, or the bundled set when the feed is down
func (s *ContextService) News(ctx context.Context) []dfs.NewsItem {
	items, err := s.caches.News.Get(ctx, newsKey, s.news.Headlines)
	if err != nil {
		if errors.Is(err, providers.ErrNoSource) {
			s.newsFallbackOnce.Do(func() {
				s.log("news").Info("No news feed configured, serving bundled headlines")
			})
		} else {
			s.log("news").WithError(err).Warn("News feed unavailable, serving bundled headlines")
		}
		return providers.FallbackNews()
	}
	return items
}

// Trending returns the most added players. The bundled list stands in
// when the feed is down.
func (s *ContextService) Trending(ctx context.Context, limit int) []dfs.TrendingPlayer {
	key := fmt.Sprintf("add:%dh", trendingLookback)
	trending, err := s.caches.Trending.Get(ctx, key, func(ctx context.Context) ([]dfs.TrendingPlayer, error) {
		return s.players.TrendingAdds(ctx, trendingLookback, trendingFetchSize)
	})
	if err != nil {
		if errors.Is(err, providers.ErrNoSource) {
			s.trendingFallbackOnce.Do(func() {
				s.log("trending").Info("No trending feed configured, serving bundled list")
			})
		} else {
			s.log("trending").WithError(err).Warn("Trending feed unavailable, serving bundled list")
		}
		trending = providers.FallbackTrending()
	}
	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending
}

func (s *ContextService) log(dataset string) *logrus.Entry {
	return logger.WithComponent(s.logger, "context").WithField("dataset", dataset)
}
