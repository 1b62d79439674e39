package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	barsPath     = "/v2/stocks/bars"
	barsPageSize = "10000"
)

// Credentials is the key pair sent with every request.
type Credentials struct {
	KeyID     string
	SecretKey string
}

func (c Credentials) empty() bool {
	return c.KeyID == "" || c.SecretKey == ""
}

type RESTClient struct {
	client *resty.Client
	creds  Credentials
	feed   string
}

// Option customizes a RESTClient.
type Option func(*RESTClient)

// WithFeed selects the data feed ("iex" or "sip").
func WithFeed(feed string) Option {
	return func(c *RESTClient) {
		if feed != "" {
			c.feed = feed
		}
	}
}

// WithTransport replaces the underlying HTTP transport, e.g. with a recorder in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *RESTClient) {
		c.client.SetTransport(rt)
	}
}

func NewRESTClient(baseURL string, timeout time.Duration, creds Credentials, opts ...Option) *RESTClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"APCA-API-KEY-ID":     creds.KeyID,
			"APCA-API-SECRET-KEY": creds.SecretKey,
			"Accept":              "application/json",
		})

	c := &RESTClient{client: client, creds: creds, feed: "iex"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetBars fetches bars for all requested symbols, following next_page_token until the
// result is exhausted. Bars are returned per symbol in the order the API sent them.
// No retry is attempted; transient failures wrap ErrTransient.
func (c *RESTClient) GetBars(ctx context.Context, req BarsRequest) (map[string][]Bar, error) {
	if c.creds.empty() {
		return nil, fmt.Errorf("%w: missing API key or secret", ErrUnauthorized)
	}
	if len(req.Symbols) == 0 {
		return nil, errors.New("no symbols requested")
	}
	if !req.Timeframe.IsValid() {
		return nil, fmt.Errorf("invalid timeframe: %s", req.Timeframe)
	}

	params := map[string]string{
		"symbols":    strings.Join(req.Symbols, ","),
		"timeframe":  string(req.Timeframe),
		"start":      req.Start.UTC().Format(time.RFC3339),
		"end":        req.End.UTC().Format(time.RFC3339),
		"limit":      barsPageSize,
		"adjustment": "raw",
		"feed":       c.feed,
	}

	out := make(map[string][]Bar)
	for {
		page, err := c.getBarsPage(ctx, params)
		if err != nil {
			return nil, err
		}
		for symbol, bars := range page.Bars {
			out[symbol] = append(out[symbol], bars...)
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		params["page_token"] = *page.NextPageToken
	}
	return out, nil
}

func (c *RESTClient) getBarsPage(ctx context.Context, params map[string]string) (*BarsResponse, error) {
	var result BarsResponse
	var apiErr APIError

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&apiErr).
		ForceContentType("application/json").
		Get(barsPath)
	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if resp.IsError() {
		return nil, statusError(resp.StatusCode(), resp.String())
	}
	return &result, nil
}

func statusError(code int, body string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, code, body)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %s", ErrTransient, code, body)
	default:
		return fmt.Errorf("alpaca error: status %d: %s", code, body)
	}
}
