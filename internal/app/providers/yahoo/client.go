// Package yahoo fetches price history from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// userAgent is required; the chart API rejects the default Go client string.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

// Client calls the v8 chart endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

// New constructs a client. An empty baseURL selects the public endpoint.
func New(client *http.Client, baseURL string, log *logger.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = logger.NewDefault("yahoo")
	}
	return &Client{client: client, baseURL: baseURL, log: log}
}

// ChartSeries returns the close series for a symbol, e.g.
// ("^BVSP", "3mo", "1d"). Null closes in the payload are skipped.
func (c *Client) ChartSeries(ctx context.Context, symbol, rng, interval string) (market.Series, error) {
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", interval)

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Series{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return market.Series{}, fmt.Errorf("request failed: %w", err)
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return market.Series{}, err
	}

	if errMsg := gjson.GetBytes(body, "chart.error.description"); errMsg.Exists() && errMsg.String() != "" {
		return market.Series{}, fmt.Errorf("yahoo chart error: %s", errMsg.String())
	}

	stamps := gjson.GetBytes(body, "chart.result.0.timestamp").Array()
	closes := gjson.GetBytes(body, "chart.result.0.indicators.quote.0.close").Array()
	if len(stamps) == 0 || len(stamps) != len(closes) {
		return market.Series{}, fmt.Errorf("malformed chart payload for %s", symbol)
	}

	var points []market.Point
	for i, stamp := range stamps {
		closePrice := closes[i].Float()
		if closes[i].Type == gjson.Null || closePrice <= 0 {
			continue
		}
		points = append(points, market.Point{
			Time:  time.Unix(stamp.Int(), 0).UTC(),
			Value: closePrice,
		})
	}
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty chart series for %s", symbol)
	}
	return market.Series{Points: points}, nil
}
