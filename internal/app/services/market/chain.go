package market

import (
	"context"
	"fmt"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/metrics"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// Provider retrieves a series from one upstream source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (market.Series, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	Label string
	Fn    func(ctx context.Context) (market.Series, error)
}

func (p ProviderFunc) Name() string { return p.Label }

func (p ProviderFunc) Fetch(ctx context.Context) (market.Series, error) {
	if p.Fn == nil {
		return market.Series{}, fmt.Errorf("provider %s has no fetch function", p.Label)
	}
	return p.Fn(ctx)
}

// Chain tries providers in order and returns the first non-empty series
// together with the serving provider's name.
type Chain struct {
	panel     string
	providers []Provider
	log       *logger.Logger
}

// NewChain builds a fallback chain for a panel.
func NewChain(panel string, log *logger.Logger, providers ...Provider) *Chain {
	if log == nil {
		log = logger.NewDefault("chain")
	}
	return &Chain{panel: panel, providers: providers, log: log}
}

// Fetch walks the chain. Every attempt is counted; the position that served
// the result is recorded so fallback pressure is visible in metrics.
func (c *Chain) Fetch(ctx context.Context) (market.Series, string, error) {
	if len(c.providers) == 0 {
		return market.Series{}, "", fmt.Errorf("panel %s has no providers", c.panel)
	}

	var lastErr error
	for i, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return market.Series{}, "", err
		}

		series, err := provider.Fetch(ctx)
		if err == nil && series.Empty() {
			// An empty payload forces a fallback too, so it counts as an
			// error outcome rather than a silent ok.
			err = fmt.Errorf("provider %s returned empty series", provider.Name())
		}
		metrics.RecordProviderRequest(provider.Name(), c.panel, err)
		if err != nil {
			lastErr = err
			c.log.WithError(err).
				WithField("panel", c.panel).
				WithField("provider", provider.Name()).
				Debug("provider failed, trying next")
			continue
		}

		metrics.RecordFallbackDepth(c.panel, i+1)
		if i > 0 {
			c.log.WithField("panel", c.panel).
				WithField("provider", provider.Name()).
				WithField("depth", i+1).
				Info("served by fallback provider")
		}
		return series, provider.Name(), nil
	}
	return market.Series{}, "", fmt.Errorf("all providers failed for panel %s: %w", c.panel, lastErr)
}
