// Package bcb fetches time series from the Brazilian Central Bank SGS API.
// Series 432 is the Selic target rate.
package bcb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://api.bcb.gov.br"

// SelicSeriesCode identifies the Selic target series in SGS.
const SelicSeriesCode = 432

// Client calls the SGS data API.
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
		log = logger.NewDefault("bcb")
	}
	return &Client{client: client, baseURL: baseURL, log: log}
}

// SGSSeries returns a full SGS series. Values come as strings with
// dd/MM/yyyy dates.
func (c *Client) SGSSeries(ctx context.Context, code int) (market.Series, error) {
	endpoint := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados?formato=json", c.baseURL, code)

	resp, err := httputil.Get(ctx, c.client, endpoint)
	if err != nil {
		return market.Series{}, err
	}

	var rows []struct {
		Data  string `json:"data"`
		Valor string `json:"valor"`
	}
	if err := httputil.DecodeResponse(resp, &rows); err != nil {
		return market.Series{}, err
	}

	var points []market.Point
	for _, row := range rows {
		when, err := time.Parse("02/01/2006", row.Data)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(row.Valor, 64)
		if err != nil {
			continue
		}
		points = append(points, market.Point{Time: when.UTC(), Value: value})
	}
	if len(points) == 0 {
		return market.Series{}, fmt.Errorf("empty sgs series %d", code)
	}
	return market.Series{Points: points}, nil
}
