package providers

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stitts-dev/waiver-ranker/internal/dfs"
)

const ProviderNews = "news"

//go:embed news_fallback.json
var fallbackNews []byte

// espnNewsResponse is the ESPN site API news shape
type espnNewsResponse struct {
	Articles []struct {
		Headline  string `json:"headline"`
		Published string `json:"published"`
		Links     struct {
			Web struct {
				Href string `json:"href"`
			} `json:"web"`
		} `json:"links"`
	} `json:"articles"`
}

// NewsClient reads headlines from a JSON news API or an HTML headlines page
type NewsClient struct {
	fetcher *Fetcher
	feedURL string
}

// NewNewsClient creates a news client. An empty feedURL leaves it unconfigured.
func NewNewsClient(fetcher *Fetcher, feedURL string) *NewsClient {
	return &NewsClient{fetcher: fetcher, feedURL: strings.TrimSpace(feedURL)}
}

// Headlines fetches and parses the feed
func (c *NewsClient) Headlines(ctx context.Context) ([]dfs.NewsItem, error) {
	if c.feedURL == "" {
		return nil, ErrNoSource
	}
	body, err := c.fetcher.Get(ctx, ProviderNews, c.feedURL)
	if err != nil {
		return nil, err
	}
	items, err := ParseNews(body, c.feedURL)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: feed contained no headlines", ProviderNews)
	}
	return items, nil
}

// ParseNews accepts a JSON array of items, an ESPN news document, or an
// HTML page whose headlines are links inside articles or headings
func ParseNews(body []byte, feedURL string) ([]dfs.NewsItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var items []dfs.NewsItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%s: failed to decode items: %w", ProviderNews, err)
		}
		return items, nil
	case '{':
		return parseESPNNews(trimmed, sourceName(feedURL))
	default:
		return parseHTMLNews(trimmed, feedURL)
	}
}

func parseESPNNews(body []byte, source string) ([]dfs.NewsItem, error) {
	var resp espnNewsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode news: %w", ProviderNews, err)
	}

	items := make([]dfs.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := strings.TrimSpace(a.Headline)
		if title == "" {
			continue
		}
		item := dfs.NewsItem{Title: title, Link: a.Links.Web.Href, Source: source}
		if published, err := time.Parse(time.RFC3339, a.Published); err == nil {
			item.Published = published.UTC()
		}
		items = append(items, item)
	}
	return items, nil
}

func parseHTMLNews(body []byte, feedURL string) ([]dfs.NewsItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse html: %w", ProviderNews, err)
	}

	base, _ := url.Parse(feedURL)
	source := sourceName(feedURL)
	seen := make(map[string]bool)
	var items []dfs.NewsItem

	collect := func(_ int, s *goquery.Selection) {
		title := strings.Join(strings.Fields(s.Text()), " ")
		href, ok := s.Attr("href")
		if title == "" || !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		link := resolveLink(base, href)
		if seen[link] {
			return
		}
		seen[link] = true

		item := dfs.NewsItem{Title: title, Link: link, Source: source}
		if ts, ok := s.Closest("article").Find("time").Attr("datetime"); ok {
			if published, err := time.Parse(time.RFC3339, ts); err == nil {
				item.Published = published.UTC()
			}
		}
		items = append(items, item)
	}

	// Strategy 1: article cards
	doc.Find("article h1 a, article h2 a, article h3 a").Each(collect)

	// Strategy 2: any linked heading
	if len(items) == 0 {
		doc.Find("h1 a, h2 a, h3 a").Each(collect)
	}

	return items, nil
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return ProviderNews
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// FallbackNews returns the bundled headlines served when no feed works
func FallbackNews() []dfs.NewsItem {
	var items []dfs.NewsItem
	if err := json.Unmarshal(fallbackNews, &items); err != nil {
		panic(fmt.Sprintf("bundled news_fallback.json is invalid: %v", err))
	}
	return items
}
