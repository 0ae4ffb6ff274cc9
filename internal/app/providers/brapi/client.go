// Package brapi talks to the brapi.dev API for B3 quotes. Historical data
// works anonymously for some symbols; the quote list used by the heatmap
// requires a token.
package brapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://brapi.dev"

// Ticker is one row from the quote list endpoint.
type Ticker struct {
	Symbol    string
	Sector    string
	ChangePct float64
	Volume    float64
}

// Client calls brapi.dev.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	log     *logger.Logger
}

// New constructs a client. The token is optional; an empty baseURL selects
// the public endpoint.
func New(client *http.Client, baseURL, token string, log *logger.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = logger.NewDefault("brapi")
	}
	return &Client{client: client, baseURL: baseURL, token: strings.TrimSpace(token), log: log}
}

// HasToken reports whether a token is configured.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.token != "" {
		params.Set("token", c.token)
	}
	resp, err := httputil.Get(ctx, c.client, c.baseURL+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return httputil.ReadBody(resp)
}

// HistoricalSeries returns the daily close series for a symbol over the
// given range, e.g. ("^BVSP", "1mo", "1d"). Candle dates are unix seconds.
func (c *Client) HistoricalSeries(ctx context.Context, symbol, rng, interval string) (market.Series, error) {
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", interval)

	body, err := c.get(ctx, "/api/quote/"+url.PathEscape(symbol), params)
	if err != nil {
		return market.Series{}, err
	}

	candles := gjson.GetBytes(body, "results.0.historicalDataPrice")
	if !candles.Exists() || !candles.IsArray() {
		return market.Series{}, fmt.Errorf("no candles for %s", symbol)
	}

	var points []market.Point
	candles.ForEach(func(_, candle gjson.Result) bool {
		stamp := candle.Get("date").Int()
		closePrice := candle.Get("close").Float()
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
		return market.Series{}, fmt.Errorf("empty candles for %s", symbol)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return market.Series{Points: points}, nil
}

// QuoteList returns the most traded B3 tickers with their sector and daily
// change. Requires a token.
func (c *Client) QuoteList(ctx context.Context, limit int) ([]Ticker, error) {
	if c.token == "" {
		return nil, fmt.Errorf("brapi token required for quote list")
	}

	params := url.Values{}
	params.Set("sortBy", "volume")
	params.Set("sortOrder", "desc")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/quote/list", params)
	if err != nil {
		return nil, err
	}

	stocks := gjson.GetBytes(body, "stocks")
	if !stocks.Exists() || !stocks.IsArray() {
		return nil, fmt.Errorf("no stocks in quote list")
	}

	var tickers []Ticker
	stocks.ForEach(func(_, stock gjson.Result) bool {
		symbol := stock.Get("stock").String()
		if symbol == "" {
			return true
		}
		tickers = append(tickers, Ticker{
			Symbol:    symbol,
			Sector:    stock.Get("sector").String(),
			ChangePct: stock.Get("change").Float(),
			Volume:    stock.Get("volume").Float(),
		})
		return true
	})
	if len(tickers) == 0 {
		return nil, fmt.Errorf("empty quote list")
	}
	return tickers, nil
}
