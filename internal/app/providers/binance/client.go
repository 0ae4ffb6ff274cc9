// Package binance fetches candlesticks from the public Binance spot API.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://api.binance.com"

// Client calls the Binance klines endpoint.
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
		log = logger.NewDefault("binance")
	}
	return &Client{client: client, baseURL: baseURL, log: log}
}

// Klines returns the close series for a symbol. Each kline row is a JSON
// array where index 4 is the close price and index 6 the close time in
// unix milliseconds.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) (market.Series, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	resp, err := httputil.Get(ctx, c.client, c.baseURL+"/api/v3/klines?"+params.Encode())
	if err != nil {
		return market.Series{}, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return market.Series{}, err
	}

	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return market.Series{}, fmt.Errorf("unexpected klines payload")
	}

	var points []market.Point
	rows.ForEach(func(_, row gjson.Result) bool {
		cells := row.Array()
		if len(cells) < 7 {
			return true
		}
		closePrice := cells[4].Float()
		closeTime := cells[6].Int()
		if closePrice <= 0 || closeTime <= 0 {
			return true
		}
		points = append(points, market.Point{
			Time:  time.UnixMilli(closeTime).UTC(),
			Value: closePrice,
		})
		return true
	})
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty klines for %s", symbol)
	}
	return market.Series{Points: points}, nil
}
