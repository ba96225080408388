package providers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const ProviderWeather = "weather"

// forecastResponse is the open-meteo hourly forecast shape
type forecastResponse struct {
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
	} `json:"hourly"`
}

// WeatherClient fetches hourly forecasts for stadium coordinates
type WeatherClient struct {
	fetcher *Fetcher
	baseURL string
	limiter *rate.Limiter
}

// NewWeatherClient creates a client allowing perSecond requests per second
func NewWeatherClient(fetcher *Fetcher, baseURL string, perSecond float64) *WeatherClient {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &WeatherClient{
		fetcher: fetcher,
		baseURL: baseURL,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ForecastForTeam returns the "<F>°F / <pct>% rain" summary at the team's
// home stadium. Indoor venues and unknown teams return nil without error.
func (c *WeatherClient) ForecastForTeam(ctx context.Context, team string, kickoff *time.Time) (*string, error) {
	stadium, ok := StadiumFor(team)
	if !ok || stadium.Indoor {
		return nil, nil
	}
	return c.Forecast(ctx, stadium.Latitude, stadium.Longitude, kickoff)
}

// Forecast samples the kickoff hour, or the first hour when kickoff is nil
// or outside the forecast window
func (c *WeatherClient) Forecast(ctx context.Context, lat, lon float64, kickoff *time.Time) (*string, error) {
	if c.baseURL == "" {
		return nil, ErrNoSource
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid weather url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,precipitation_probability")
	q.Set("temperature_unit", "fahrenheit")
	q.Set("timezone", "UTC")
	q.Set("forecast_days", "16")
	u.RawQuery = q.Encode()

	var resp forecastResponse
	if err := c.fetcher.GetJSON(ctx, ProviderWeather, u.String(), &resp); err != nil {
		return nil, err
	}

	summary, ok := summarize(resp, kickoff)
	if !ok {
		return nil, fmt.Errorf("%s: forecast had no usable hours", ProviderWeather)
	}
	return &summary, nil
}

func summarize(resp forecastResponse, kickoff *time.Time) (string, bool) {
	h := resp.Hourly
	n := len(h.Time)
	if len(h.Temperature) < n {
		n = len(h.Temperature)
	}
	if n == 0 {
		return "", false
	}

	idx := 0
	if kickoff != nil {
		want := kickoff.UTC().Truncate(time.Hour).Format("2006-01-02T15:04")
		for i := 0; i < n; i++ {
			if h.Time[i] == want {
				idx = i
				break
			}
		}
	}

	// fall forward to the first hour with a reading
	for idx < n && h.Temperature[idx] == nil {
		idx++
	}
	if idx >= n {
		return "", false
	}

	rain := 0.0
	if idx < len(h.PrecipitationProbability) && h.PrecipitationProbability[idx] != nil {
		rain = *h.PrecipitationProbability[idx]
	}

	return FormatWeather(*h.Temperature[idx], rain), true
}

// FormatWeather renders the summary string consumed by the scoring engine
func FormatWeather(tempF, rainPct float64) string {
	return fmt.Sprintf("%d°F / %d%% rain", int(math.Round(tempF)), int(math.Round(rainPct)))
}
