package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

type MockBreaker struct {
	mock.Mock
}

func (m *MockBreaker) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	args := m.Called(service)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return fn()
}

func testFetcher(reg *metrics.Registry) *Fetcher {
	var um *metrics.UpstreamMetrics
	if reg != nil {
		um = reg.Upstream
	}
	return NewFetcher(2*time.Second, nil, um, logger.Discard()).WithRetry(3, time.Millisecond)
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	reg := metrics.NewRegistry()
	var out struct{ OK bool }
	err := testFetcher(reg).GetJSON(context.Background(), "espn", server.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Upstream.Requests.WithLabelValues("espn", "success")))
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testFetcher(nil).Get(context.Background(), "espn", server.URL)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls)
}

func TestFetcher_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testFetcher(nil).Get(context.Background(), "espn", server.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestFetcher_UsesBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	breaker := new(MockBreaker)
	breaker.On("Execute", "weather").Return(nil).Once()
	breaker.On("Execute", "sleeper").Return(errors.New("circuit breaker is open")).Once()

	f := NewFetcher(time.Second, breaker, nil, logger.Discard())
	body, err := f.Get(context.Background(), "weather", server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	_, err = f.Get(context.Background(), "sleeper", server.URL)
	assert.EqualError(t, err, "circuit breaker is open")
	breaker.AssertExpectations(t)
}

func TestWeatherClient_SamplesKickoffHour(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "temperature_2m,precipitation_probability", r.URL.Query().Get("hourly"))
		assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		fmt.Fprint(w, `{"hourly":{
			"time":["2024-09-08T16:00","2024-09-08T17:00","2024-09-08T18:00"],
			"temperature_2m":[70.2,68.6,null],
			"precipitation_probability":[5,45,80]}}`)
	}))
	defer server.Close()

	client := NewWeatherClient(testFetcher(nil), server.URL, 0)

	kickoff := time.Date(2024, 9, 8, 17, 25, 0, 0, time.UTC)
	got, err := client.ForecastForTeam(context.Background(), "kc", &kickoff)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "69°F / 45% rain", *got)

	got, err = client.ForecastForTeam(context.Background(), "KC", nil)
	require.NoError(t, err)
	assert.Equal(t, "70°F / 5% rain", *got)

	missing := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err = client.Forecast(context.Background(), 39.0, -94.4, &missing)
	require.NoError(t, err)
	assert.Equal(t, "70°F / 5% rain", *got)
}

func TestWeatherClient_IndoorAndUnknownTeams(t *testing.T) {
	client := NewWeatherClient(testFetcher(nil), "http://127.0.0.1:1", 0)

	got, err := client.ForecastForTeam(context.Background(), "DET", nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = client.ForecastForTeam(context.Background(), "XXX", nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWeatherClient_EmptyForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hourly":{"time":[],"temperature_2m":[]}}`)
	}))
	defer server.Close()

	_, err := NewWeatherClient(testFetcher(nil), server.URL, 0).ForecastForTeam(context.Background(), "BUF", nil)
	assert.Error(t, err)
}

func TestDefenseSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `team,overall`+"\n"+`KC,3`)
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "ranks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"team":"KC"}]`), 0o644))

	tests := []struct {
		name     string
		location string
		want     string
		wantErr  bool
	}{
		{"http", server.URL, "team,overall\nKC,3", false},
		{"plain path", path, `[{"team":"KC"}]`, false},
		{"file url", "file://" + path, `[{"team":"KC"}]`, false},
		{"missing file", filepath.Join(dir, "nope.json"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewDefenseSource(testFetcher(nil), tt.location)
			assert.True(t, src.Configured())
			data, err := src.Fetch(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	unconfigured := NewDefenseSource(testFetcher(nil), "  ")
	assert.False(t, unconfigured.Configured())
	_, err := unconfigured.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestSleeperClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/players/nfl":
			fmt.Fprint(w, `{"4046":{"player_id":"4046","first_name":"Patrick","last_name":"Mahomes","team":"KC","position":"QB"}}`)
		case "/v1/players/nfl/trending/add":
			assert.Equal(t, "24", r.URL.Query().Get("lookback_hours"))
			fmt.Fprint(w, `[{"player_id":"4046","count":1200}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewSleeperClient(testFetcher(nil), server.URL+"/v1/")

	raw, err := client.Players(context.Background())
	require.NoError(t, err)
	require.Contains(t, raw, "4046")
	assert.Equal(t, "Mahomes", raw["4046"].LastName)
	require.NotNil(t, raw["4046"].Team)
	assert.Equal(t, "KC", *raw["4046"].Team)

	trending, err := client.TrendingAdds(context.Background(), 24, 25)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, 1200, trending[0].Count)
}

func TestParseNews(t *testing.T) {
	t.Run("espn json", func(t *testing.T) {
		body := `{"articles":[
			{"headline":"Rookie breaks out","published":"2024-09-09T12:00:00Z","links":{"web":{"href":"https://espn.com/a"}}},
			{"headline":"  ","links":{"web":{"href":"https://espn.com/b"}}}]}`
		items, err := ParseNews([]byte(body), "https://site.api.espn.com/apis/site/v2/sports/football/nfl/news")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Rookie breaks out", items[0].Title)
		assert.Equal(t, "site.api.espn.com", items[0].Source)
		assert.Equal(t, 2024, items[0].Published.Year())
	})

	t.Run("html articles", func(t *testing.T) {
		body := `<html><body>
			<nav><h2><a href="#top">Skip</a></h2></nav>
			<article><h2><a href="/news/1">Backup RB   set to start</a></h2><time datetime="2024-09-10T08:00:00Z"></time></article>
			<article><h3><a href="https://other.example/2">Receiver ruled out</a></h3></article>
			<article><h3><a href="/news/1">Duplicate</a></h3></article>
		</body></html>`
		items, err := ParseNews([]byte(body), "https://www.example.com/nfl")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Backup RB set to start", items[0].Title)
		assert.Equal(t, "https://www.example.com/news/1", items[0].Link)
		assert.Equal(t, "example.com", items[0].Source)
		assert.Equal(t, 10, items[0].Published.Day())
		assert.Equal(t, "https://other.example/2", items[1].Link)
	})

	t.Run("html headings without articles", func(t *testing.T) {
		items, err := ParseNews([]byte(`<h1><a href="/x">Top story</a></h1>`), "https://example.com")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "https://example.com/x", items[0].Link)
	})

	t.Run("json array", func(t *testing.T) {
		items, err := ParseNews([]byte(`[{"title":"A","link":"l","source":"s"}]`), "")
		require.NoError(t, err)
		require.Len(t, items, 1)
	})
}

func TestFallbackTrending(t *testing.T) {
	trending := FallbackTrending()
	require.NotEmpty(t, trending)
	for i, p := range trending {
		assert.NotEmpty(t, p.PlayerID)
		if i > 0 {
			assert.GreaterOrEqual(t, trending[i-1].Count, p.Count)
		}
	}
}

func TestFallbackNews(t *testing.T) {
	assert.NotEmpty(t, FallbackNews())
}

func TestESPNClient_ScoreboardFor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Query().Get("dates"))
	}))
	defer server.Close()

	body, err := NewESPNClient(testFetcher(nil), server.URL).ScoreboardFor(context.Background(), time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "20240908", string(body))

	_, err = NewESPNClient(testFetcher(nil), "").Scoreboard(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}
