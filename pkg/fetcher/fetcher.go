// Package fetcher is the upstream producer: it downloads a search
// results page and converts its markup into notice records. The core
// pipeline never performs network I/O itself.
package fetcher

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/pkg/extractor"
	"github.com/xhad/bidwatch/pkg/matcher"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

type Config struct {
	SearchURL       string
	Keywords        []string
	DefaultProvince string
	Cities          []string
	RateLimit       float64 // requests per second
	Timeout         time.Duration
	OnProgress      func(url string)
}

type Fetcher struct {
	config    Config
	client    *http.Client
	limiter   *rate.Limiter
	matcher   *matcher.Matcher
	extractor *extractor.Extractor
}

func NewWithConfig(config Config) (*Fetcher, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 0.5
	}
	if config.SearchURL == "" {
		return nil, fmt.Errorf("search URL is required")
	}

	if _, err := url.Parse(config.SearchURL); err != nil {
		return nil, err
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		matcher:   matcher.New(config.Keywords),
		extractor: extractor.NewWithConfig(extractor.Config{
			DefaultProvince: config.DefaultProvince,
			Cities:          config.Cities,
		}),
	}, nil
}

// SearchURL builds the keyword search URL the records point back to.
func (f *Fetcher) SearchURL() string {
	return f.config.SearchURL + "?keywords=" + url.QueryEscape(strings.Join(f.config.Keywords, ","))
}

// Fetch downloads one search results page and parses its markup into
// records.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]models.NoticeRecord, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	if f.config.OnProgress != nil {
		f.config.OnProgress(pageURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, pageURL)
	}

	return f.ParseSearchPage(resp.Body)
}
