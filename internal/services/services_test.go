package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/waiver-ranker/internal/defense"
	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/market"
	"github.com/stitts-dev/waiver-ranker/internal/players"
	"github.com/stitts-dev/waiver-ranker/internal/providers"
	"github.com/stitts-dev/waiver-ranker/internal/scoring"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

const testScoreboard = `{"events":[
	{"date":"2024-09-08T17:00Z","competitions":[{
		"competitors":[
			{"homeAway":"home","team":{"abbreviation":"KC"}},
			{"homeAway":"away","team":{"abbreviation":"BAL"}}],
		"odds":[{"details":"KC -3","overUnder":47}]}]},
	{"date":"2024-09-08T20:25Z","competitions":[{
		"competitors":[
			{"homeAway":"home","team":{"abbreviation":"DET"}},
			{"homeAway":"away","team":{"abbreviation":"GB"}}],
		"odds":[{"details":"DET -2.5","overUnder":51}]}]}]}`

type MockScoreboardSource struct{ mock.Mock }

func (m *MockScoreboardSource) Scoreboard(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

type MockWeatherSource struct{ mock.Mock }

func (m *MockWeatherSource) ForecastForTeam(ctx context.Context, team string, kickoff *time.Time) (*string, error) {
	args := m.Called(ctx, team, kickoff)
	summary, _ := args.Get(0).(*string)
	return summary, args.Error(1)
}

type MockPlayerSource struct{ mock.Mock }

func (m *MockPlayerSource) Players(ctx context.Context) (map[string]players.RawPlayer, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).(map[string]players.RawPlayer)
	return raw, args.Error(1)
}

func (m *MockPlayerSource) TrendingAdds(ctx context.Context, lookbackHours, limit int) ([]dfs.TrendingPlayer, error) {
	args := m.Called(ctx, lookbackHours, limit)
	trending, _ := args.Get(0).([]dfs.TrendingPlayer)
	return trending, args.Error(1)
}

type MockNewsSource struct{ mock.Mock }

func (m *MockNewsSource) Headlines(ctx context.Context) ([]dfs.NewsItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]dfs.NewsItem)
	return items, args.Error(1)
}

type fakeDefenseSource struct {
	payload  []byte
	err      error
	location string
	calls    int
}

func (f *fakeDefenseSource) Fetch(context.Context) ([]byte, error) {
	f.calls++
	return f.payload, f.err
}

func (f *fakeDefenseSource) Configured() bool { return f.location != "" }
func (f *fakeDefenseSource) Location() string { return f.location }

// gatedDefenseSource blocks Fetch until release is closed
type gatedDefenseSource struct {
	payload []byte
	entered chan struct{}
	release chan struct{}
}

func (g *gatedDefenseSource) Fetch(ctx context.Context) ([]byte, error) {
	close(g.entered)
	select {
	case <-g.release:
		return g.payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedDefenseSource) Configured() bool { return true }
func (g *gatedDefenseSource) Location() string { return "https://example.com/ranks.json" }

type fixture struct {
	espn    *MockScoreboardSource
	weather *MockWeatherSource
	players *MockPlayerSource
	news    *MockNewsSource
	context *ContextService
}

func newFixture() *fixture {
	f := &fixture{
		espn:    new(MockScoreboardSource),
		weather: new(MockWeatherSource),
		players: new(MockPlayerSource),
		news:    new(MockNewsSource),
	}
	caches := NewContextCaches(CacheSettings{
		ScoreboardTTL:      3 * time.Minute,
		WeatherTTL:         30 * time.Minute,
		PlayerDirectoryTTL: 12 * time.Hour,
		NewsTTL:            10 * time.Minute,
		TrendingTTL:        10 * time.Minute,
		Logger:             logger.Discard(),
	})
	f.context = NewContextService(caches, f.espn, f.weather, f.players, f.news, market.NewResolver(nil), logger.Discard())
	return f
}

func strPtr(s string) *string { return &s }

func TestDefenseService_BootstrapsFromBundledTable(t *testing.T) {
	src := &fakeDefenseSource{}
	svc := NewDefenseService(src, defense.NewNormalizer(nil, defense.DefaultWeights),
		filepath.Join(t.TempDir(), "missing.json"), time.Hour, nil, logger.Discard())

	status := svc.Status()
	assert.Equal(t, "bundled", status.Origin)
	assert.Equal(t, 32, status.Teams)
	assert.Equal(t, defense.NeutralRank, svc.RankFor("KC", dfs.PositionWR))

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, providers.ErrNoSource)
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, providers.ErrNoSource)
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, 32, svc.Table().Len())
}

func TestDefenseService_RefreshPersistsAndSurvivesFailures(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "data", "defense_ranks.json")
	src := &fakeDefenseSource{
		location: "https://example.com/ranks.json",
		payload:  []byte(`{"data":[{"team":"KC","QB":10,"RB":20,"WR":5,"TE":30},{"team":"BAL","overall":3,"QB":1,"RB":2,"WR":3,"TE":4}]}`),
	}
	normalizer := defense.NewNormalizer(nil, defense.DefaultWeights)
	svc := NewDefenseService(src, normalizer, cacheFile, time.Hour, nil, logger.Discard())

	table, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 5.0, svc.RankFor("KC", dfs.PositionWR))
	assert.Equal(t, defense.NeutralRank, svc.RankFor("NYJ", dfs.PositionWR))

	kc, ok := svc.Lookup("kc")
	require.True(t, ok)
	assert.Equal(t, 14.5, kc.Overall)

	persisted, err := defense.LoadFile(cacheFile)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	src.err = errors.New("upstream down")
	_, err = svc.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, svc.Table().Len())

	status := svc.Status()
	assert.Equal(t, "source", status.Origin)
	assert.Contains(t, status.LastError, "upstream down")
	require.NotNil(t, status.LastAttempt)

	src.err = nil
	src.payload = []byte(`[{"rank":3}]`)
	_, err = svc.Refresh(context.Background())
	assert.ErrorIs(t, err, defense.ErrNoUsableRecords)
	assert.Equal(t, 2, svc.Table().Len())

	restarted := NewDefenseService(&fakeDefenseSource{}, normalizer, cacheFile, time.Hour, nil, logger.Discard())
	assert.Equal(t, "file", restarted.Status().Origin)
	assert.Equal(t, 5.0, restarted.RankFor("KC", dfs.PositionWR))
}

func TestDefenseService_StartStop(t *testing.T) {
	svc := NewDefenseService(&fakeDefenseSource{}, defense.NewNormalizer(nil, defense.DefaultWeights),
		"", 6*time.Hour, nil, logger.Discard())

	require.NoError(t, svc.Start())
	assert.Error(t, svc.Start())

	status := svc.Status()
	require.NotNil(t, status.NextRun)
	assert.True(t, status.NextRun.After(time.Now()))

	svc.Stop()
	svc.Stop()
}

func TestDefenseService_StopWaitsForStartupRefresh(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "defense_ranks.json")
	src := &gatedDefenseSource{
		payload: []byte(`{"data":[{"team":"KC","QB":10,"RB":20,"WR":5,"TE":30}]}`),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewDefenseService(src, defense.NewNormalizer(nil, defense.DefaultWeights),
		cacheFile, time.Hour, nil, logger.Discard())

	require.NoError(t, svc.Start())
	<-src.entered

	stopped := make(chan struct{})
	go func() {
		svc.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the startup refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(src.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}

	assert.Equal(t, "source", svc.Status().Origin)
	persisted, err := defense.LoadFile(cacheFile)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestContextService_MarketIsCached(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return([]byte(testScoreboard), nil).Once()

	mc, ok := f.context.MarketFor(context.Background(), "BAL")
	require.True(t, ok)
	assert.Equal(t, "KC", mc.Opponent)
	assert.Equal(t, 3.0, mc.Spread)

	idx, err := f.context.Market(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	f.espn.AssertExpectations(t)
}

func TestContextService_MarketFailureIsUnknownTeam(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return(nil, errors.New("timeout"))

	_, ok := f.context.MarketFor(context.Background(), "KC")
	assert.False(t, ok)
}

func TestContextService_WeatherUsesHomeStadium(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return([]byte(testScoreboard), nil)
	f.weather.On("ForecastForTeam", mock.Anything, "KC", mock.AnythingOfType("*time.Time")).
		Return(strPtr("55°F / 20% rain"), nil).Once()

	got, err := f.context.WeatherForTeam(context.Background(), "BAL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "55°F / 20% rain", *got)

	got, err = f.context.WeatherForTeam(context.Background(), "KC")
	require.NoError(t, err)
	assert.Equal(t, "55°F / 20% rain", *got)

	got, err = f.context.WeatherForTeam(context.Background(), "GB")
	require.NoError(t, err)
	assert.Nil(t, got, "game is in Detroit's dome")

	f.weather.AssertExpectations(t)
}

func TestContextService_Directory(t *testing.T) {
	f := newFixture()
	kc := "KC"
	f.players.On("Players", mock.Anything).Return(map[string]players.RawPlayer{
		"4046": {PlayerID: "4046", FirstName: "Patrick", LastName: "Mahomes", Team: &kc, Position: "QB"},
		"9999": {PlayerID: "9999", FirstName: "Some", LastName: "Guard", Team: &kc, Position: "OG"},
	}, nil).Once()

	matches, err := f.context.SearchPlayers(context.Background(), "mahomes", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "4046", matches[0].ID)

	best, ok, err := f.context.BestPlayer(context.Background(), "Patrick Mahomes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, players.ScoreExact, best.MatchScore)

	f.players.AssertExpectations(t)
}

func TestContextService_NewsFallsBack(t *testing.T) {
	f := newFixture()
	f.news.On("Headlines", mock.Anything).Return(nil, providers.ErrNoSource)

	items := f.context.News(context.Background())
	assert.Equal(t, providers.FallbackNews(), items)
}

func TestContextService_TrendingLimitAndFailure(t *testing.T) {
	f := newFixture()
	f.players.On("TrendingAdds", mock.Anything, 24, 50).Return([]dfs.TrendingPlayer{
		{PlayerID: "1", Count: 900},
		{PlayerID: "2", Count: 800},
		{PlayerID: "3", Count: 700},
	}, nil).Once()

	assert.Len(t, f.context.Trending(context.Background(), 2), 2)
	assert.Len(t, f.context.Trending(context.Background(), 0), 3)

	down := newFixture()
	down.players.On("TrendingAdds", mock.Anything, 24, 50).Return(nil, errors.New("503"))
	fallback := providers.FallbackTrending()
	require.Greater(t, len(fallback), 10)
	assert.Equal(t, fallback[:10], down.context.Trending(context.Background(), 10))

	unconfigured := newFixture()
	unconfigured.players.On("TrendingAdds", mock.Anything, 24, 50).Return(nil, providers.ErrNoSource)
	assert.Equal(t, fallback, unconfigured.context.Trending(context.Background(), 0))
	assert.Equal(t, fallback[:3], unconfigured.context.Trending(context.Background(), 3))
}

func TestScoringService_ScorePlayers(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return([]byte(testScoreboard), nil)
	f.weather.On("ForecastForTeam", mock.Anything, "KC", mock.Anything).Return(strPtr("70°F / 0% rain"), nil)

	defenseSvc := NewDefenseService(&fakeDefenseSource{}, defense.NewNormalizer(nil, defense.DefaultWeights),
		"", time.Hour, nil, logger.Discard())
	svc := NewScoringService(f.context, defenseSvc, scoring.NewEngine(), logger.Discard())

	stats := map[string]float64{"snap_pct": 80, "target_share": 25, "fantasy_points": 15}
	inputs := []dfs.PlayerInput{
		{Name: "Bench Guy", Position: "WR", Team: "gb", Stats: map[string]float64{"fantasy_points": 2}},
		{Name: "Road Dog", Position: "WR", Team: "bal", Stats: stats},
		{Name: "Home Fav", Position: "WR", Team: "KC", Stats: stats},
		{Name: "Free Agent", Position: "WR", Stats: stats},
	}

	scored, err := svc.ScorePlayers(context.Background(), inputs, dfs.ModeWeek)
	require.NoError(t, err)
	require.Len(t, scored, 4)

	assert.Equal(t, "Home Fav", scored[0].Name)
	assert.Equal(t, "BAL", scored[0].Opponent)
	assert.Equal(t, 25.0, scored[0].ImpliedTotal)
	require.NotNil(t, scored[0].Spread)
	assert.Equal(t, -3.0, *scored[0].Spread)
	require.NotNil(t, scored[0].Weather)
	assert.Equal(t, "70°F / 0% rain", *scored[0].Weather)

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}

	byName := map[string]dfs.ScoredPlayer{}
	for _, p := range scored {
		byName[p.Name] = p
	}
	assert.Nil(t, byName["Bench Guy"].Weather)
	assert.Equal(t, "DET", byName["Bench Guy"].Opponent)
	assert.Nil(t, byName["Free Agent"].OverUnder)
	assert.Equal(t, defense.NeutralRank, byName["Free Agent"].DefRank)

	again, err := svc.ScorePlayers(context.Background(), inputs, dfs.ModeWeek)
	require.NoError(t, err)
	assert.Equal(t, scored, again)
}

func TestScoringService_CanonicalizesTeamAliases(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return([]byte(`{"events":[
		{"date":"2024-09-08T17:00Z","competitions":[{
			"competitors":[
				{"homeAway":"home","team":{"abbreviation":"JAC"}},
				{"homeAway":"away","team":{"abbreviation":"WSH"}}],
			"odds":[{"details":"JAC -1","overUnder":44}]}]}]}`), nil)
	f.weather.On("ForecastForTeam", mock.Anything, "JAX", mock.Anything).Return(strPtr("81°F / 10% rain"), nil)
	f.context = NewContextService(f.context.caches, f.espn, f.weather, f.players, f.news,
		market.NewResolver(defense.DefaultAliases().CanonicalTeam), logger.Discard())

	defenseSvc := NewDefenseService(&fakeDefenseSource{
		location: "https://example.com/ranks.json",
		payload:  []byte(`{"data":[{"team":"JAX","QB":9,"RB":2,"WR":14,"TE":21}]}`),
	}, defense.NewNormalizer(nil, defense.DefaultWeights), "", time.Hour, nil, logger.Discard())
	_, err := defenseSvc.Refresh(context.Background())
	require.NoError(t, err)
	svc := NewScoringService(f.context, defenseSvc, scoring.NewEngine(), logger.Discard())

	player, _ := svc.Explain(context.Background(), dfs.PlayerInput{
		Name: "Road Back", Position: "RB", Opponent: "JAC",
		Stats: map[string]float64{"fantasy_points": 12},
	}, dfs.ModeWeek)
	assert.Equal(t, "JAX", player.Opponent)
	assert.Equal(t, 2.0, player.DefRank)

	visitor, _ := svc.Explain(context.Background(), dfs.PlayerInput{
		Name: "Road Wideout", Position: "WR", Team: "WSH",
		Stats: map[string]float64{"fantasy_points": 12},
	}, dfs.ModeWeek)
	assert.Equal(t, "WAS", visitor.Team)
	assert.Equal(t, "JAX", visitor.Opponent)
	assert.Equal(t, 14.0, visitor.DefRank)
	require.NotNil(t, visitor.Spread)
	assert.Equal(t, 1.0, *visitor.Spread)
	require.NotNil(t, visitor.Weather)
	assert.Equal(t, "81°F / 10% rain", *visitor.Weather)

	mc, ok := f.context.MarketFor(context.Background(), "Commanders")
	require.True(t, ok)
	assert.Equal(t, "WAS", mc.Team)
}

func TestScoringService_DegradesWithoutMarket(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return(nil, errors.New("espn down"))
	f.weather.On("ForecastForTeam", mock.Anything, "KC", mock.Anything).Return(nil, errors.New("weather down"))

	defenseSvc := NewDefenseService(&fakeDefenseSource{}, defense.NewNormalizer(nil, defense.DefaultWeights),
		"", time.Hour, nil, logger.Discard())
	svc := NewScoringService(f.context, defenseSvc, scoring.NewEngine(), logger.Discard())

	player, breakdown := svc.Explain(context.Background(), dfs.PlayerInput{
		Name: "Home Fav", Position: "WR", Team: "KC", Opponent: "LV",
		Stats: map[string]float64{"fantasy_points": 15},
	}, dfs.ModeROS)

	assert.Nil(t, player.Weather)
	assert.Nil(t, player.Spread)
	assert.Equal(t, defense.NeutralRank, player.DefRank)
	assert.Equal(t, dfs.ModeROS, breakdown.Mode)
	assert.Equal(t, breakdown.Score, player.Score)
	assert.Greater(t, player.Score, 0.0)
}

func TestScoringService_CancelledContext(t *testing.T) {
	f := newFixture()
	f.espn.On("Scoreboard", mock.Anything).Return(nil, context.Canceled)

	defenseSvc := NewDefenseService(&fakeDefenseSource{}, defense.NewNormalizer(nil, defense.DefaultWeights),
		"", time.Hour, nil, logger.Discard())
	svc := NewScoringService(f.context, defenseSvc, scoring.NewEngine(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ScorePlayers(ctx, []dfs.PlayerInput{{Name: "x"}}, dfs.ModeWeek)
	assert.ErrorIs(t, err, context.Canceled)
}
