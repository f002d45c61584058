// Package github is a minimal client for the repository commits endpoint of
// the GitHub REST API.
package github

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/cv-verifier/internal/logger"
)

const (
	apiURL    = "https://api.github.com"
	userAgent = "spigell/cv-verifier"
	// Max value for per_page on the commits endpoint.
	maxPerPage     = 100
	defaultTimeout = 15 * time.Second
	// Unauthenticated clients get 60 requests per hour.
	defaultRate = rate.Limit(1)
)

// Config tunes a Client. Zero values select the defaults.
type Config struct {
	APIURL        string
	Token         string
	UserAgent     string
	PerPage       int
	Timeout       time.Duration
	RatePerSecond float64
}

type Client struct {
	token      string
	perPage    int
	limiter    *rate.Limiter
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New builds a Client. A blank token means unauthenticated requests.
func New(cfg Config, log *zap.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if base == "" {
		base = apiURL
	}

	perPage := cfg.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := defaultRate
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	agent := cfg.UserAgent
	if agent == "" {
		agent = userAgent
	}

	return &Client{
		token:      strings.TrimSpace(cfg.Token),
		perPage:    perPage,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.WithFields(log, zap.String("client", "github")),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  agent,
		APIURL:     base,
	}
}

// PerPage returns the page size used for paginated requests.
func (c *Client) PerPage() int { return c.perPage }
