// Package alphavantage talks to the Alpha Vantage query API. All endpoints
// require an API key; construction fails without one so chains can skip the
// provider entirely when the key is absent.
package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// Client calls the Alpha Vantage query endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// New constructs a client. An empty baseURL selects the public endpoint.
func New(client *http.Client, baseURL, apiKey string, log *logger.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("alphavantage api key required")
	}
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = logger.NewDefault("alphavantage")
	}
	return &Client{client: client, baseURL: baseURL, apiKey: apiKey, log: log}, nil
}

func (c *Client) query(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)
	resp, err := httputil.Get(ctx, c.client, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	// Rate-limit notes come back as 200s with a "Note" or "Information" field.
	for _, field := range []string{"Note", "Information"} {
		if note := gjson.GetBytes(body, field); note.Exists() {
			return nil, fmt.Errorf("alphavantage throttled: %s", note.String())
		}
	}
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return nil, fmt.Errorf("alphavantage error: %s", msg.String())
	}
	return body, nil
}

// FXIntraday returns the intraday FX series for a currency pair. The time
// series key name varies by interval, e.g. "Time Series FX (5min)".
func (c *Client) FXIntraday(ctx context.Context, from, to, interval string) (market.Series, error) {
	params := url.Values{}
	params.Set("function", "FX_INTRADAY")
	params.Set("from_symbol", from)
	params.Set("to_symbol", to)
	params.Set("interval", interval)
	params.Set("outputsize", "compact")

	body, err := c.query(ctx, params)
	if err != nil {
		return market.Series{}, err
	}
	key := fmt.Sprintf("Time Series FX (%s)", interval)
	return parseTimeSeries(body, key, "4. close", "2006-01-02 15:04:05")
}

// FXDaily returns the daily FX series for a currency pair.
func (c *Client) FXDaily(ctx context.Context, from, to string) (market.Series, error) {
	params := url.Values{}
	params.Set("function", "FX_DAILY")
	params.Set("from_symbol", from)
	params.Set("to_symbol", to)
	params.Set("outputsize", "compact")

	body, err := c.query(ctx, params)
	if err != nil {
		return market.Series{}, err
	}
	return parseTimeSeries(body, "Time Series FX (Daily)", "4. close", "2006-01-02")
}

// CryptoDaily returns the daily close series for a digital currency. The
// close column is usually "4b. close (USD)" with "4a. close (USD)" as the
// alternative spelling.
func (c *Client) CryptoDaily(ctx context.Context, symbol, quote string) (market.Series, error) {
	params := url.Values{}
	params.Set("function", "DIGITAL_CURRENCY_DAILY")
	params.Set("symbol", symbol)
	params.Set("market", quote)

	body, err := c.query(ctx, params)
	if err != nil {
		return market.Series{}, err
	}

	primary := fmt.Sprintf("4b. close (%s)", quote)
	series, err := parseTimeSeries(body, "Time Series (Digital Currency Daily)", primary, "2006-01-02")
	if err == nil && !series.Empty() {
		return series, nil
	}
	alternative := fmt.Sprintf("4a. close (%s)", quote)
	return parseTimeSeries(body, "Time Series (Digital Currency Daily)", alternative, "2006-01-02")
}

// DailySeries returns the daily close series for an equity symbol.
func (c *Client) DailySeries(ctx context.Context, symbol string) (market.Series, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	body, err := c.query(ctx, params)
	if err != nil {
		return market.Series{}, err
	}
	return parseTimeSeries(body, "Time Series (Daily)", "4. close", "2006-01-02")
}

func parseTimeSeries(body []byte, key, closeColumn, layout string) (market.Series, error) {
	ts := gjson.GetBytes(body, escapeKey(key))
	if !ts.Exists() {
		return market.Series{}, fmt.Errorf("missing %q in alphavantage response", key)
	}

	var points []market.Point
	ts.ForEach(func(stamp, row gjson.Result) bool {
		when, err := time.Parse(layout, stamp.String())
		if err != nil {
			return true
		}
		value := row.Get(escapeKey(closeColumn)).Float()
		if value <= 0 {
			return true
		}
		points = append(points, market.Point{Time: when.UTC(), Value: value})
		return true
	})
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty series under %q", key)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return market.Series{Points: points}, nil
}

// escapeKey escapes gjson path characters in literal JSON keys.
func escapeKey(key string) string {
	replacer := strings.NewReplacer(".", "\\.", "*", "\\*", "?", "\\?")
	return replacer.Replace(key)
}
