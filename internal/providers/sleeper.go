package providers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
	"github.com/stitts-dev/waiver-ranker/internal/players"
)

const ProviderSleeper = "sleeper"

//go:embed trending_fallback.json
var fallbackTrending []byte

// SleeperClient reads the public Sleeper player directory and trends
type SleeperClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewSleeperClient creates a client rooted at baseURL (e.g. https://api.sleeper.app/v1)
func NewSleeperClient(fetcher *Fetcher, baseURL string) *SleeperClient {
	return &SleeperClient{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

// Players returns every NFL player keyed by Sleeper id
func (c *SleeperClient) Players(ctx context.Context) (map[string]players.RawPlayer, error) {
	if c.baseURL == "" {
		return nil, ErrNoSource
	}
	var raw map[string]players.RawPlayer
	if err := c.fetcher.GetJSON(ctx, ProviderSleeper, c.baseURL+"/players/nfl", &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: empty player directory", ProviderSleeper)
	}
	return raw, nil
}

// TrendingAdds returns the most added players over the lookback window
func (c *SleeperClient) TrendingAdds(ctx context.Context, lookbackHours, limit int) ([]dfs.TrendingPlayer, error) {
	if c.baseURL == "" {
		return nil, ErrNoSource
	}
	url := fmt.Sprintf("%s/players/nfl/trending/add?lookback_hours=%d&limit=%d", c.baseURL, lookbackHours, limit)

	var trending []dfs.TrendingPlayer
	if err := c.fetcher.GetJSON(ctx, ProviderSleeper, url, &trending); err != nil {
		return nil, err
	}
	return trending, nil
}

// FallbackTrending returns the bundled most-added list served when the
// trending feed is unreachable
func FallbackTrending() []dfs.TrendingPlayer {
	var trending []dfs.TrendingPlayer
	if err := json.Unmarshal(fallbackTrending, &trending); err != nil {
		panic(fmt.Sprintf("bundled trending_fallback.json is invalid: %v", err))
	}
	return trending
}
