// Package wiki is a thin client over the MediaWiki action API, the
// Wikimedia Pageviews REST API and the Lift Wing inference endpoints.
package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/opinionscience/wikimetron/internal/config"
	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/resilience"
)

// Endpoint labels used for limiter keys and instrumentation.
const (
	endpointAction    = "action_api"
	endpointPageviews = "pageviews"
	endpointLiftWing  = "lift_wing"
)

// ErrNotFound marks a missing page or article with no data upstream.
var ErrNotFound = errors.New("not found")

// Client issues requests to the Wikimedia APIs with per-language rate
// limiting, retries and a descriptive User-Agent.
type Client struct {
	cfg       *config.Wiki
	http      *http.Client
	inference *http.Client
	logger    zerolog.Logger

	// One limiter per language edition, plus one each for the shared
	// pageviews and Lift Wing hosts.
	limiters  map[string]*rate.Limiter
	limiterMu sync.RWMutex
}

// NewClient creates a wiki client from the given config section.
func NewClient(cfg *config.Wiki, logger zerolog.Logger) *Client {
	timeouts := resilience.DefaultTimeoutConfig()
	return &Client{
		cfg:       cfg,
		http:      timeouts.Action.HTTPClient(cfg.RequestTimeout),
		inference: timeouts.LiftWing.HTTPClient(cfg.InferenceTimeout),
		logger:    logger.With().Str("component", "wiki").Logger(),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// limiter returns the rate limiter for a limiter key, creating it on first use.
func (c *Client) limiter(key string) *rate.Limiter {
	c.limiterMu.RLock()
	lim, exists := c.limiters[key]
	c.limiterMu.RUnlock()

	if exists {
		return lim
	}

	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()

	// Double-check after acquiring write lock
	if lim, exists := c.limiters[key]; exists {
		return lim
	}

	lim = rate.NewLimiter(rate.Limit(c.cfg.RateLimit), c.cfg.RateBurst)
	c.limiters[key] = lim
	return lim
}

func (c *Client) apiURL(lang string) string {
	return fmt.Sprintf(c.cfg.ActionAPITemplate, lang)
}

// doJSON performs one rate-limited, retried request and decodes the JSON
// response into out. A 404 maps to ErrNotFound without retrying.
func (c *Client) doJSON(ctx context.Context, endpoint, limiterKey, method, rawURL string, body []byte, out interface{}) error {
	if err := c.limiter(limiterKey).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	httpClient := c.http
	if endpoint == endpointLiftWing {
		httpClient = c.inference
	}

	attempt := 0
	retryCfg := resilience.RetryConfig{
		MaxAttempts:   c.cfg.RetryAttempts,
		InitialDelay:  c.cfg.RetryInitialDelay,
		Logger:        &c.logger,
		OperationName: endpoint,
	}

	return resilience.RetryWithBackoff(ctx, retryCfg, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
		}

		var reader *bytes.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return resilience.NewNonRetryableError(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := httpClient.Do(req)
		metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotFound {
			return resilience.NewNonRetryableError(fmt.Errorf("%w: %s", ErrNotFound, rawURL))
		}
		if resp.StatusCode != http.StatusOK {
			return resilience.StatusError(resp.StatusCode, rawURL)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// Malformed payloads are occasionally served by overloaded
			// mirrors; worth one more attempt.
			return resilience.NewRetryableError(fmt.Errorf("decode %s response: %w", endpoint, err))
		}
		return nil
	})
}

// query performs one MediaWiki action=query call for a language edition.
func (c *Client) query(ctx context.Context, lang string, params url.Values) (*queryResponse, error) {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	fullURL := c.apiURL(lang) + "?" + params.Encode()

	var resp queryResponse
	if err := c.doJSON(ctx, endpointAction, lang, http.MethodGet, fullURL, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resilience.NewNonRetryableError(
			fmt.Errorf("mediawiki api error %s: %s", resp.Error.Code, resp.Error.Info))
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Wire types (formatversion=2)
// ---------------------------------------------------------------------------

type queryResponse struct {
	BatchComplete bool              `json:"batchcomplete"`
	Continue      map[string]string `json:"continue"`
	Error         *apiError         `json:"error"`
	Query         struct {
		Pages        []pageData    `json:"pages"`
		Users        []userData    `json:"users"`
		UserContribs []contribData `json:"usercontribs"`
	} `json:"query"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type pageData struct {
	PageID     int64             `json:"pageid"`
	Namespace  int               `json:"ns"`
	Title      string            `json:"title"`
	Missing    bool              `json:"missing"`
	Protection []ProtectionEntry `json:"protection"`
	Revisions  []revisionData    `json:"revisions"`
}

type revisionData struct {
	RevID     int64  `json:"revid"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Anon      bool   `json:"anon"`
	Minor     bool   `json:"minor"`
	Size      int    `json:"size"`
	Comment   string `json:"comment"`
	Slots     struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

type userData struct {
	Name    string   `json:"name"`
	Missing bool     `json:"missing"`
	Groups  []string `json:"groups"`
}

type contribData struct {
	Timestamp string `json:"timestamp"`
	SizeDiff  int    `json:"sizediff"`
}

// ProtectionEntry is one protection restriction on a page.
type ProtectionEntry struct {
	Type  string `json:"type"`
	Level string `json:"level"`
}
