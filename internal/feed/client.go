package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrNoSource = errors.New("no source configured")

// Kind names one of the external feeds.
type Kind string

const (
	KindCalendar   Kind = "calendar"
	KindTimetable  Kind = "timetable"
	KindAttendance Kind = "attendance"
	KindGrades     Kind = "grades"
	KindHolidays   Kind = "holidays"
)

// Kinds lists every JSON feed.
var Kinds = []Kind{KindCalendar, KindTimetable, KindAttendance, KindGrades}

// Client reads feed bodies from http(s) URLs or local files.
type Client struct {
	token      string
	httpClient *http.Client
	cache      *BodyCache
	logger     *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewClient(token string, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:      NewBodyCache(cacheTTL),
		logger:     logger,
		maxRetries: 3,
		backoff:    backoff,
	}
}

// Fetch returns the body at source, serving from cache when fresh.
func (c *Client) Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, ErrNoSource
	}
	if cached := c.cache.Get(source); cached != nil {
		return cached, nil
	}

	var body []byte
	var err error
	if isURL(source) {
		body, err = c.doRequest(ctx, source)
	} else {
		body, err = os.ReadFile(source)
		if err != nil {
			err = fmt.Errorf("reading feed file: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	c.cache.Set(source, body)
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("feed request", "url", url)

	var resp *http.Response
	requestStart := time.Now()
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json, text/calendar")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == c.maxRetries || ctx.Err() != nil {
				c.logger.Error("feed transport error", "url", url, "error", err, "elapsed", time.Since(requestStart))
				return nil, fmt.Errorf("sending request: %w", err)
			}
			c.logger.Debug("feed transport error, retrying", "url", url, "attempt", attempt+1, "error", err)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				c.logger.Error("feed request failed after retries", "url", url, "status", resp.StatusCode, "attempts", c.maxRetries+1)
				return nil, fmt.Errorf("feed returned status %d after %d retries", resp.StatusCode, c.maxRetries)
			}
			c.logger.Debug("feed retryable error", "url", url, "status", resp.StatusCode, "attempt", attempt+1)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("feed response", "url", url, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("feed request failed", "url", url, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, fmt.Errorf("feed error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return respBody, nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff(attempt)):
		return nil
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
