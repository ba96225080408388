package providers

import (
	"context"
	"net/url"
	"time"
)

const ProviderESPN = "espn"

// ESPNClient fetches the NFL scoreboard with odds
type ESPNClient struct {
	fetcher *Fetcher
	baseURL string
}

// NewESPNClient creates a scoreboard client for baseURL
func NewESPNClient(fetcher *Fetcher, baseURL string) *ESPNClient {
	return &ESPNClient{fetcher: fetcher, baseURL: baseURL}
}

// Scoreboard returns the raw scoreboard payload for the current week
func (c *ESPNClient) Scoreboard(ctx context.Context) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoSource
	}
	return c.fetcher.Get(ctx, ProviderESPN, c.baseURL)
}

// ScoreboardFor returns the raw scoreboard payload for a specific date
func (c *ESPNClient) ScoreboardFor(ctx context.Context, date time.Time) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoSource
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("dates", date.Format("20060102"))
	u.RawQuery = q.Encode()
	return c.fetcher.Get(ctx, ProviderESPN, u.String())
}
