// Package exchangeratehost fetches spot FX rates from exchangerate.host,
// the keyless fallback for the USD/BRL panel.
package exchangeratehost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

const defaultBaseURL = "https://api.exchangerate.host"

// Client calls the exchangerate.host latest-rates endpoint.
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
		log = logger.NewDefault("exchangeratehost")
	}
	return &Client{client: client, baseURL: baseURL, log: log}
}

// Latest returns the current rate for one currency pair.
func (c *Client) Latest(ctx context.Context, base, quote string) (float64, error) {
	params := url.Values{}
	params.Set("base", base)
	params.Set("symbols", quote)

	resp, err := httputil.Get(ctx, c.client, c.baseURL+"/latest?"+params.Encode())
	if err != nil {
		return 0, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return 0, err
	}

	rate := gjson.GetBytes(body, "rates."+quote).Float()
	if rate <= 0 {
		return 0, fmt.Errorf("no %s/%s rate in response", base, quote)
	}
	return rate, nil
}
