package sentiment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"nkbot/internal/logger"
)

const minHeadlineLength = 10

// HeadlineFetcher supplies raw news headlines. The scraping/NLP pipeline
// behind it is an external collaborator; this package only aggregates.
type HeadlineFetcher interface {
	Headlines(ctx context.Context) ([]string, error)
}

// NewsSource averages the lexicon scores of fetched headlines into one
// market-wide scalar.
type NewsSource struct {
	fetcher  HeadlineFetcher
	analyzer Analyzer
}

func NewNewsSource(fetcher HeadlineFetcher) *NewsSource {
	return &NewsSource{fetcher: fetcher}
}

func (s *NewsSource) Fetch(ctx context.Context) (float64, error) {
	if s.fetcher == nil {
		return 0, fmt.Errorf("sentiment: headline fetcher not configured")
	}
	headlines, err := s.fetcher.Headlines(ctx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	count := 0
	for _, h := range headlines {
		if len(strings.TrimSpace(h)) <= minHeadlineLength {
			continue
		}
		score := s.analyzer.Score(h, 0)
		if score != 0 {
			total += score
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	avg := total / float64(count)
	logger.Infof("[sentiment] scored %d/%d headlines, market=%.4f", count, len(headlines), avg)
	return avg, nil
}

// Endpoint is one HTTP headline source: GET URL, read an array of strings at
// the gjson path.
type Endpoint struct {
	URL  string
	Path string
}

// HTTPHeadlineFetcher pulls headlines from a set of JSON endpoints. A single
// failing endpoint is skipped; the fetch only fails when every endpoint does.
type HTTPHeadlineFetcher struct {
	endpoints []Endpoint
	client    *http.Client
}

func NewHTTPHeadlineFetcher(endpoints []Endpoint) *HTTPHeadlineFetcher {
	return &HTTPHeadlineFetcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPHeadlineFetcher) Headlines(ctx context.Context) ([]string, error) {
	if len(f.endpoints) == 0 {
		return nil, fmt.Errorf("sentiment: no news endpoints configured")
	}
	var out []string
	var lastErr error
	for _, ep := range f.endpoints {
		items, err := f.fetchOne(ctx, ep)
		if err != nil {
			lastErr = err
			logger.Warnf("[sentiment] fetch %s failed: %v", ep.URL, err)
			continue
		}
		out = append(out, items...)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (f *HTTPHeadlineFetcher) fetchOne(ctx context.Context, ep Endpoint) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	path := ep.Path
	if path == "" {
		path = "@this"
	}
	result := gjson.GetBytes(body, path)
	var items []string
	result.ForEach(func(_, value gjson.Result) bool {
		if s := strings.TrimSpace(value.String()); s != "" {
			items = append(items, s)
		}
		return true
	})
	return items, nil
}
