package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Redis is optional; empty keeps every cache in process memory
	RedisURL       string        `mapstructure:"REDIS_URL"`
	RedisRetention time.Duration `mapstructure:"REDIS_RETENTION"`

	// External APIs
	ESPNScoreboardURL       string        `mapstructure:"ESPN_SCOREBOARD_URL"`
	WeatherAPIURL           string        `mapstructure:"WEATHER_API_URL"`
	WeatherRateLimit        float64       `mapstructure:"WEATHER_RATE_LIMIT"`
	SleeperAPIURL           string        `mapstructure:"SLEEPER_API_URL"`
	NewsFeedURL             string        `mapstructure:"NEWS_FEED_URL"`
	ExternalAPITimeout      time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`

	// Defense rankings
	DefenseSource          string        `mapstructure:"DEFENSE_SOURCE"`
	DefenseCacheFile       string        `mapstructure:"DEFENSE_CACHE_FILE"`
	DefenseAliasesFile     string        `mapstructure:"DEFENSE_ALIASES_FILE"`
	DefenseRefreshInterval time.Duration `mapstructure:"DEFENSE_REFRESH_INTERVAL"`
	DefenseWeightQB        float64       `mapstructure:"DEFENSE_WEIGHT_QB"`
	DefenseWeightRB        float64       `mapstructure:"DEFENSE_WEIGHT_RB"`
	DefenseWeightWR        float64       `mapstructure:"DEFENSE_WEIGHT_WR"`
	DefenseWeightTE        float64       `mapstructure:"DEFENSE_WEIGHT_TE"`

	// Freshness windows
	WeatherTTL         time.Duration `mapstructure:"WEATHER_TTL"`
	ScoreboardTTL      time.Duration `mapstructure:"SCOREBOARD_TTL"`
	PlayerDirectoryTTL time.Duration `mapstructure:"PLAYER_DIRECTORY_TTL"`
	NewsTTL            time.Duration `mapstructure:"NEWS_TTL"`
	TrendingTTL        time.Duration `mapstructure:"TRENDING_TTL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	setDefaults(viper.GetViper())

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_RETENTION", "168h")

	v.SetDefault("ESPN_SCOREBOARD_URL", "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard")
	v.SetDefault("WEATHER_API_URL", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("WEATHER_RATE_LIMIT", 5) // requests per second
	v.SetDefault("SLEEPER_API_URL", "https://api.sleeper.app/v1")
	v.SetDefault("NEWS_FEED_URL", "")
	v.SetDefault("EXTERNAL_API_TIMEOUT", "10s")
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)

	v.SetDefault("DEFENSE_SOURCE", "")
	v.SetDefault("DEFENSE_CACHE_FILE", "data/defense_ranks.json")
	v.SetDefault("DEFENSE_ALIASES_FILE", "")
	v.SetDefault("DEFENSE_REFRESH_INTERVAL", "6h")
	v.SetDefault("DEFENSE_WEIGHT_QB", 0.20)
	v.SetDefault("DEFENSE_WEIGHT_RB", 0.40)
	v.SetDefault("DEFENSE_WEIGHT_WR", 0.30)
	v.SetDefault("DEFENSE_WEIGHT_TE", 0.10)

	v.SetDefault("WEATHER_TTL", "30m")
	v.SetDefault("SCOREBOARD_TTL", "3m")
	v.SetDefault("PLAYER_DIRECTORY_TTL", "12h")
	v.SetDefault("NEWS_TTL", "10m")
	v.SetDefault("TRENDING_TTL", "10m")
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := v.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	return &config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
