// Package stooq downloads daily OHLC history as CSV from stooq.com, with
// the stooq.pl mirror as an alternative host.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// csvHeader is the exact header a valid daily export starts with. Anything
// else (HTML error pages, "No data" bodies) is rejected.
const csvHeader = "Date,Open,High,Low,Close,Volume"

var defaultHosts = []string{"https://stooq.com", "https://stooq.pl"}

// Client downloads daily series, trying each host in order.
type Client struct {
	client *http.Client
	hosts  []string
	log    *logger.Logger
}

// New constructs a client. Empty hosts selects the public mirrors.
func New(client *http.Client, hosts []string, log *logger.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if len(hosts) == 0 {
		hosts = defaultHosts
	}
	if log == nil {
		log = logger.NewDefault("stooq")
	}
	return &Client{client: client, hosts: hosts, log: log}
}

// DailySeries returns the daily close series for a symbol such as "^bvsp"
// or "spy.us", together with the host that served it.
func (c *Client) DailySeries(ctx context.Context, symbol string) (market.Series, string, error) {
	var lastErr error
	for _, host := range c.hosts {
		series, err := c.fetchHost(ctx, host, symbol)
		if err != nil {
			lastErr = err
			c.log.WithError(err).WithField("host", host).Debug("stooq host failed")
			continue
		}
		return series, host, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no stooq hosts configured")
	}
	return market.Series{}, "", fmt.Errorf("stooq %s: %w", symbol, lastErr)
}

func (c *Client) fetchHost(ctx context.Context, host, symbol string) (market.Series, error) {
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", host, url.QueryEscape(symbol))
	resp, err := httputil.Get(ctx, c.client, endpoint)
	if err != nil {
		return market.Series{}, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return market.Series{}, err
	}

	text := string(body)
	if !strings.HasPrefix(strings.TrimSpace(text), csvHeader) {
		return market.Series{}, fmt.Errorf("unexpected csv header")
	}

	reader := csv.NewReader(strings.NewReader(text))
	records, err := reader.ReadAll()
	if err != nil {
		return market.Series{}, fmt.Errorf("parse csv: %w", err)
	}

	var points []market.Point
	for i, record := range records {
		if i == 0 || len(record) < 5 {
			continue
		}
		when, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(record[4], 64)
		if err != nil || closePrice <= 0 {
			continue
		}
		points = append(points, market.Point{Time: when.UTC(), Value: closePrice})
	}
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty series for %s", symbol)
	}
	return market.Series{Points: points}, nil
}
