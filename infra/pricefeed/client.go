// Package pricefeed fetches day-ahead spot prices from elprisetjustnu.se.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/smartcharge/auth"
	"github.com/kilianp07/smartcharge/core/pricing"
)

// DefaultBaseURL is the public day file API.
const DefaultBaseURL = "https://www.elprisetjustnu.se/api/v1/prices"

// ErrNotPublished is returned when the day file does not exist yet.
var ErrNotPublished = errors.New("prices not published")

// Config configures the Client.
type Config struct {
	BaseURL  string        `json:"base_url"`
	Zone     string        `json:"zone"`
	Currency string        `json:"currency"`
	Timeout  time.Duration `json:"timeout"`
	// Auth is only needed when the feed sits behind an OAuth2 gateway.
	Auth auth.Conf `json:"auth"`
}

// Client implements pricing.Feed.
type Client struct {
	cfg  Config
	http *http.Client
	loc  *time.Location
}

// New creates a Client. Day files are addressed by the calendar date in loc.
func New(cfg Config, loc *time.Location) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Zone == "" {
		cfg.Zone = "SE3"
	}
	if cfg.Currency == "" {
		cfg.Currency = "SEK"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}
	base := &http.Client{Timeout: cfg.Timeout}
	return &Client{cfg: cfg, http: auth.Client(cfg.Auth, base), loc: loc}
}

type record struct {
	SEK       *float64 `json:"SEK_per_kWh"`
	EUR       *float64 `json:"EUR_per_kWh"`
	TimeStart string   `json:"time_start"`
	TimeEnd   string   `json:"time_end"`
}

// URL returns the day file address for day.
func (c *Client) URL(day time.Time) string {
	d := day.In(c.loc)
	return fmt.Sprintf("%s/%04d/%02d-%02d_%s.json",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), d.Year(), int(d.Month()), d.Day(), c.cfg.Zone)
}

// Fetch retrieves the price table of day.
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]pricing.RawPrice, error) {
	url := c.URL(day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", url, ErrNotPublished)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	out := make([]pricing.RawPrice, 0, len(records))
	for _, r := range records {
		price, ok := c.price(r)
		if !ok {
			continue
		}
		out = append(out, pricing.RawPrice{
			TimeStart: parseTime(r.TimeStart),
			TimeEnd:   parseTime(r.TimeEnd),
			Price:     price,
		})
	}
	return out, nil
}

func (c *Client) price(r record) (float64, bool) {
	p := r.SEK
	if strings.EqualFold(c.cfg.Currency, "EUR") {
		p = r.EUR
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// parseTime returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
