// Package coinbase fetches candles from the public Coinbase Exchange API.
package coinbase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://api.exchange.coinbase.com"

// Client calls the Coinbase Exchange candles endpoint.
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
		log = logger.NewDefault("coinbase")
	}
	return &Client{client: client, baseURL: baseURL, log: log}
}

// Candles returns the close series for a product. Rows come newest first as
// [time, low, high, open, close, volume] with unix-second timestamps.
func (c *Client) Candles(ctx context.Context, product string, granularity int) (market.Series, error) {
	url := fmt.Sprintf("%s/products/%s/candles?granularity=%s",
		c.baseURL, product, strconv.Itoa(granularity))

	resp, err := httputil.Get(ctx, c.client, url)
	if err != nil {
		return market.Series{}, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return market.Series{}, err
	}

	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return market.Series{}, fmt.Errorf("unexpected candles payload")
	}

	var points []market.Point
	rows.ForEach(func(_, row gjson.Result) bool {
		cells := row.Array()
		if len(cells) < 5 {
			return true
		}
		stamp := cells[0].Int()
		closePrice := cells[4].Float()
		if stamp <= 0 || closePrice <= 0 {
			return true
		}
		points = append(points, market.Point{
			Time:  time.Unix(stamp, 0).UTC(),
			Value: closePrice,
		})
		return true
	})
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty candles for %s", product)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return market.Series{Points: points}, nil
}
