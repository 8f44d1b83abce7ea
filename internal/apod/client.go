// internal/apod/client.go
//
// Client for NASA's Astronomy Picture of the Day API, the image source for decks.
// Responsibilities:
//   - Request `count` random APOD entries.
//   - Classify failures: no response at all (NetworkError) versus a response
//     with a non-success status or unreadable body (UpstreamError).
//   - Throttle outbound calls so a busy server does not burn the API quota.
package apod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/astromatch/internal/deck"
)

const (
	DefaultBaseURL = "https://api.nasa.gov"
	DemoKey        = "DEMO_KEY"
	maxBodyBytes   = 4 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64 // 0 disables throttling
	Burst      int
	HTTPClient *http.Client
}

// Client fetches images from APOD.
type Client struct {
	base    string
	key     string
	http    *http.Client
	limiter *rate.Limiter
}

// entry is the subset of an APOD record this service uses.
type entry struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Title     string `json:"title"`
}

// New builds a Client, filling defaults for empty options.
func New(opts Options) *Client {
	c := &Client{
		base: opts.BaseURL,
		key:  opts.APIKey,
		http: opts.HTTPClient,
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.key == "" {
		c.key = DemoKey
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return c
}

// FetchImages returns count random APOD entries. Entries of any media type
// are returned; callers filter with deck.FilterImages.
func (c *Client) FetchImages(ctx context.Context, count int) ([]deck.Image, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(count), nil)
	if err != nil {
		return nil, fmt.Errorf("build apod request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: excerpt(body)}
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Err: fmt.Errorf("decode apod response: %w", err)}
	}

	out := make([]deck.Image, 0, len(entries))
	for _, e := range entries {
		out = append(out, deck.Image{URL: e.URL, MediaType: e.MediaType, Title: e.Title})
	}
	log.Debug().
		Int("requested", count).
		Int("received", len(out)).
		Dur("took", time.Since(start)).
		Msg("apod fetch")
	return out, nil
}

// endpoint builds the APOD URL. The key is never logged.
func (c *Client) endpoint(count int) string {
	q := url.Values{}
	q.Set("api_key", c.key)
	q.Set("count", strconv.Itoa(count))
	return c.base + "/planetary/apod?" + q.Encode()
}

func excerpt(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
