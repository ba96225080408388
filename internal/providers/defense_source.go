package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const ProviderDefense = "defense"

// DefenseSource reads a defensive ranking payload from a URL or a file
type DefenseSource struct {
	fetcher  *Fetcher
	location string
}

// NewDefenseSource accepts http(s) URLs, file:// URLs and plain paths. An
// empty location leaves the source unconfigured.
func NewDefenseSource(fetcher *Fetcher, location string) *DefenseSource {
	return &DefenseSource{fetcher: fetcher, location: strings.TrimSpace(location)}
}

// Configured reports whether a location was given
func (s *DefenseSource) Configured() bool {
	return s.location != ""
}

// Location returns the configured URL or path
func (s *DefenseSource) Location() string {
	return s.location
}

// Fetch returns the raw payload
func (s *DefenseSource) Fetch(ctx context.Context) ([]byte, error) {
	switch {
	case s.location == "":
		return nil, ErrNoSource
	case strings.HasPrefix(s.location, "http://"), strings.HasPrefix(s.location, "https://"):
		return s.fetcher.Get(ctx, ProviderDefense, s.location)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(s.location, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", ProviderDefense, path, err)
	}
	return data, nil
}
