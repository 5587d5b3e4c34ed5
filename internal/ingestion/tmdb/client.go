package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"releasewatch/internal/release"
)

const (
	defaultRateLimit = 4
	defaultRateBurst = 8

	// longest Retry-After we are willing to sleep through on a 429
	maxRetryAfter = 30 * time.Second
)

var (
	// ErrNotFound is returned when TMDB has no such movie.
	ErrNotFound = errors.New("tmdb: not found")
	// ErrRateLimited is returned when a 429 cannot be waited out.
	ErrRateLimited = errors.New("tmdb: rate limited")
)

// Client handles TMDB API requests with client-side rate limiting.
type Client struct {
	apiKey      string
	baseURL     string
	language    string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit sets the request rate (requests per second) and burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLanguage sets the language of localized fields such as titles. An
// empty value omits the parameter and TMDB falls back to its default.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		language:    "en-US",
		rateLimiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateBurst),
		logger:      zerolog.Nop(),
		sleep:       sleepContext,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CandidatePage fetches one page of /discover/movie for the query.
func (c *Client) CandidatePage(ctx context.Context, q CandidateQuery, page int) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	params.Set("include_video", "false")
	if q.Region != "" {
		params.Set("region", strings.ToUpper(q.Region))
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, 0, len(q.Kinds))
		for _, k := range q.Kinds {
			kinds = append(kinds, strconv.Itoa(int(k)))
		}
		params.Set("with_release_type", strings.Join(kinds, "|"))
	}
	if !q.From.IsZero() {
		params.Set("release_date.gte", release.FormatDate(q.From))
	}
	if !q.To.IsZero() {
		params.Set("release_date.lte", release.FormatDate(q.To))
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)

	var payload MoviePage
	if err := c.doRequest(ctx, "/discover/movie", params, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch candidate page %d: %w", page, err)
	}
	return payload.Results, nil
}

// ReleaseDates fetches every release date TMDB knows for a movie, all countries.
func (c *Client) ReleaseDates(ctx context.Context, movieID int64) ([]ReleaseDate, error) {
	var payload releaseDatesResponse
	endpoint := fmt.Sprintf("/movie/%d/release_dates", movieID)
	if err := c.doRequest(ctx, endpoint, url.Values{}, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch release dates for movie %d: %w", movieID, err)
	}
	return payload.flatten(), nil
}

// doRequest performs a GET with rate limiting. A 429 is waited out once when
// Retry-After allows it; no other failure is retried.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	fullURL := c.baseURL + endpoint + "?" + params.Encode()

	for attempt := 0; attempt < 2; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ReleaseWatch/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
			drainAndClose(resp.Body)
			if !ok || wait > maxRetryAfter || attempt > 0 {
				return ErrRateLimited
			}
			c.logger.Warn().Str("endpoint", endpoint).Dur("retry_after", wait).Msg("tmdb rate limited, waiting")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		err = decodeResponse(resp, result)
		drainAndClose(resp.Body)
		return err
	}
	return ErrRateLimited
}

func decodeResponse(resp *http.Response, result interface{}) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
