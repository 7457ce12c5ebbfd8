package activity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/betbot/polycopy/pkg/logger"
	"github.com/betbot/polycopy/pkg/ratelimit"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
)

const (
	DefaultBaseURL = "https://data-api.polymarket.com"
	DefaultTimeout = 10 * time.Second
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RateLimiter *ratelimit.RateLimitManager
}

// Client reads the public Data API activity feed.
type Client struct {
	http    *sdkhttp.Client
	limiter *ratelimit.RateLimitManager
	timeout time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = ratelimit.NewRateLimitManager()
	}
	return &Client{
		http:    sdkhttp.NewClient(opts.BaseURL, sdkhttp.Options{Timeout: opts.Timeout, UserAgent: "polycopy-feed"}),
		limiter: opts.RateLimiter,
		timeout: opts.Timeout,
	}
}

// FetchActivity returns up to limit records for wallet, newest first.
func (c *Client) FetchActivity(ctx context.Context, wallet string, limit int) ([]Record, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("activity: wallet is required")
	}
	if limit <= 0 {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx, ratelimit.KeyActivityGet); err != nil {
		return nil, fmt.Errorf("activity: rate limit: %w", err)
	}

	var out []Record
	_, err := c.http.DoRequest(ctx, http.MethodGet, "/activity", &sdkhttp.RequestOptions{
		Params: map[string]any{"user": wallet, "limit": limit},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("activity: fetch %s: %w", wallet, err)
	}
	return out, nil
}

// Fetch is FetchActivity with failures degraded to an empty batch.
func (c *Client) Fetch(ctx context.Context, wallet string, limit int) []Record {
	recs, err := c.FetchActivity(ctx, wallet, limit)
	if err != nil {
		logger.WithField("wallet", wallet).Warnf("activity fetch failed: %v", err)
		return nil
	}
	return recs
}
