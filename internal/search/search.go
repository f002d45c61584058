// Package search enriches an analysis with web search results about the
// candidate.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/logger"
)

const (
	defaultMaxResults = 5
	defaultTimeout    = 10 * time.Second
	maxBodyBytes      = 4 << 20
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// rawResult accepts both the generic shape and the Tavily field names.
type rawResult struct {
	Title   string `mapstructure:"title"`
	Snippet string `mapstructure:"snippet"`
	Content string `mapstructure:"content"`
	Link    string `mapstructure:"link"`
	URL     string `mapstructure:"url"`
}

type Config struct {
	APIURL     string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	apiURL     string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *zap.Logger
}

// New returns a Client. A blank APIURL leaves the client unconfigured; it
// then answers every query with a placeholder.
func New(cfg Config, log *zap.Logger) *Client {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiURL:     strings.TrimSpace(cfg.APIURL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithFields(log, zap.String(logger.FieldStage, "search")),
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool { return c != nil && c.apiURL != "" }

// Placeholder is returned when no search endpoint is configured.
func Placeholder(query string) Result {
	return Result{
		Title:   fmt.Sprintf("placeholder result for: %s", query),
		Snippet: "No search API configured; this is a placeholder.",
	}
}

// Failure is returned when the search request fails.
func Failure(query string) Result {
	return Result{
		Title:   fmt.Sprintf("error fetching results for: %s", query),
		Snippet: "Request failed or returned unexpected data.",
	}
}

// Query builds the enrichment query for a candidate.
func Query(name, title string) string {
	return strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(title))
}

// Search returns at most limit results for query. A non-positive limit uses
// the configured maximum. It never fails: problems are reported as a single
// marked result.
func (c *Client) Search(ctx context.Context, query string, limit int) []Result {
	if !c.Configured() {
		return []Result{Placeholder(query)}
	}
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	results, err := c.search(ctx, query, limit)
	if err != nil {
		c.logger.Warn("search request failed", zap.String("query", query), zap.Error(err))
		return []Result{Failure(query)}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("bad status: %s", resp.Status)
	}

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "decode response body")
	}

	return decodeResults(body)
}

// decodeResults accepts either a bare list or an object with a results list.
func decodeResults(body any) ([]Result, error) {
	items := body
	if obj, ok := body.(map[string]any); ok {
		list, found := obj["results"]
		if !found {
			return nil, eris.New("response has no results")
		}
		items = list
	}
	if _, ok := items.([]any); !ok {
		return nil, eris.New("results are not a list")
	}

	var raw []rawResult
	if err := mapstructure.WeakDecode(items, &raw); err != nil {
		return nil, eris.Wrap(err, "decode results")
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		res := Result{Title: r.Title, Snippet: r.Snippet, Link: r.Link}
		if res.Snippet == "" {
			res.Snippet = r.Content
		}
		if res.Link == "" {
			res.Link = r.URL
		}
		results = append(results, res)
	}
	return results, nil
}
