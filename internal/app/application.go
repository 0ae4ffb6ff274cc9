package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/events"
	"github.com/lucasmieiro/finterm/internal/app/providers/alphavantage"
	"github.com/lucasmieiro/finterm/internal/app/providers/bcb"
	"github.com/lucasmieiro/finterm/internal/app/providers/binance"
	"github.com/lucasmieiro/finterm/internal/app/providers/brapi"
	"github.com/lucasmieiro/finterm/internal/app/providers/coinbase"
	"github.com/lucasmieiro/finterm/internal/app/providers/exchangeratehost"
	"github.com/lucasmieiro/finterm/internal/app/providers/newsfeed"
	"github.com/lucasmieiro/finterm/internal/app/providers/stooq"
	"github.com/lucasmieiro/finterm/internal/app/providers/yahoo"
	heatmapsvc "github.com/lucasmieiro/finterm/internal/app/services/heatmap"
	marketsvc "github.com/lucasmieiro/finterm/internal/app/services/market"
	newssvc "github.com/lucasmieiro/finterm/internal/app/services/news"
	"github.com/lucasmieiro/finterm/internal/app/services/refresher"
	statussvc "github.com/lucasmieiro/finterm/internal/app/services/status"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/internal/app/storage/memory"
	"github.com/lucasmieiro/finterm/internal/app/system"
	"github.com/lucasmieiro/finterm/internal/config"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// bova11Base is the index level the ETF proxy series is normalized to.
const bova11Base = 100000

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Snapshots storage.SnapshotStore
	Headlines storage.HeadlineStore
	Heatmaps  storage.HeatmapStore
}

// Application ties the terminal services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Hub       *events.Hub
	Market    *marketsvc.Service
	News      *newssvc.Service
	Heatmap   *heatmapsvc.Service
	Status    *statussvc.Service
	Refresher *refresher.Runner
}

// New builds a fully wired application from configuration.
func New(cfg config.Config, stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.New("app", cfg.LogLevel)
	}

	mem := memory.New()
	if stores.Snapshots == nil {
		stores.Snapshots = mem
	}
	if stores.Headlines == nil {
		stores.Headlines = mem
	}
	if stores.Heatmaps == nil {
		stores.Heatmaps = mem
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	hub := events.NewHub()

	marketService := marketsvc.New(stores.Snapshots, hub, log)
	if err := registerPanels(marketService, cfg, httpClient, log); err != nil {
		return nil, err
	}

	newsClient := newsfeed.New(httpClient, log)
	newsService := newssvc.New(newsClient, stores.Headlines, hub, cfg.News.Feeds, cfg.News.Cap, log)

	brapiClient := brapi.New(httpClient, "", cfg.BrapiToken, log)
	heatmapService := heatmapsvc.New(brapiClient, stores.Heatmaps, hub, cfg.Heatmap.Limit, log)

	quiet, err := refresher.NewQuietWindow(cfg.QuietHours.StartHour, cfg.QuietHours.EndHour, cfg.QuietHours.Timezone)
	if err != nil {
		return nil, err
	}
	runner := refresher.New(quiet, log)

	for _, panel := range marketService.Panels() {
		panel := panel
		err := runner.Add(refresher.Job{
			Name:     panel.ID,
			Schedule: panel.Schedule,
			Run: func(ctx context.Context) error {
				_, _, err := marketService.Refresh(ctx, panel.ID, false)
				return err
			},
		})
		if err != nil {
			return nil, fmt.Errorf("register panel job: %w", err)
		}
	}

	err = runner.Add(refresher.Job{
		Name:     "news",
		Schedule: cfg.News.Schedule,
		Run: func(ctx context.Context) error {
			_, err := newsService.Refresh(ctx)
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("register news job: %w", err)
	}

	if heatmapService.Enabled() {
		err = runner.Add(refresher.Job{
			Name:     "heatmap",
			Schedule: cfg.Heatmap.Schedule,
			Run: func(ctx context.Context) error {
				_, err := heatmapService.Refresh(ctx)
				return err
			},
		})
		if err != nil {
			return nil, fmt.Errorf("register heatmap job: %w", err)
		}
	} else {
		log.Warn("BRAPI_TOKEN not set; sector heatmap disabled")
	}

	manager := system.NewManager()
	if err := manager.Register(runner); err != nil {
		return nil, fmt.Errorf("register refresher: %w", err)
	}

	return &Application{
		manager:   manager,
		log:       log,
		Hub:       hub,
		Market:    marketService,
		News:      newsService,
		Heatmap:   heatmapService,
		Status:    statussvc.New(log),
		Refresher: runner,
	}, nil
}

// Start launches the managed background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop shuts down the managed background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}

// registerPanels builds the fixed panel set with its provider fallback
// chains: usdbrl, ibov, spy, btc and selic.
func registerPanels(svc *marketsvc.Service, cfg config.Config, httpClient *http.Client, log *logger.Logger) error {
	yahooClient := yahoo.New(httpClient, "", log)
	stooqClient := stooq.New(httpClient, nil, log)
	brapiClient := brapi.New(httpClient, "", cfg.BrapiToken, log)
	binanceClient := binance.New(httpClient, "", log)
	coinbaseClient := coinbase.New(httpClient, "", log)
	fxClient := exchangeratehost.New(httpClient, "", log)
	bcbClient := bcb.New(httpClient, "", log)

	var avClient *alphavantage.Client
	if cfg.AlphaVantageKey != "" {
		var err error
		avClient, err = alphavantage.New(httpClient, "", cfg.AlphaVantageKey, log)
		if err != nil {
			return err
		}
	} else {
		log.Warn("ALPHAVANTAGE_KEY not set; Alpha Vantage providers skipped")
	}

	// USD/BRL: Alpha Vantage intraday, then daily, then exchangerate.host.
	var fxProviders []marketsvc.Provider
	if avClient != nil {
		fxProviders = append(fxProviders,
			marketsvc.ProviderFunc{Label: "alphavantage-intraday", Fn: func(ctx context.Context) (market.Series, error) {
				return avClient.FXIntraday(ctx, "USD", "BRL", "5min")
			}},
			marketsvc.ProviderFunc{Label: "alphavantage-daily", Fn: func(ctx context.Context) (market.Series, error) {
				return avClient.FXDaily(ctx, "USD", "BRL")
			}},
		)
	}
	fxProviders = append(fxProviders,
		marketsvc.ProviderFunc{Label: "exchangerate.host", Fn: func(ctx context.Context) (market.Series, error) {
			return spotSeries(ctx, fxClient, "USD", "BRL")
		}},
	)
	err := svc.RegisterPanel(market.Panel{
		ID:       market.PanelUSDBRL,
		Title:    "USD/BRL",
		Unit:     "BRL",
		Schedule: cfg.PanelSchedule(market.PanelUSDBRL),
		TTL:      cfg.PanelTTL(market.PanelUSDBRL),
	}, marketsvc.NewChain(market.PanelUSDBRL, log, fxProviders...))
	if err != nil {
		return err
	}

	// IBOV: Yahoo, then Stooq mirrors, then brapi history, then the BOVA11
	// ETF (brapi, then Stooq) as a normalized proxy for the index level.
	ibovProviders := []marketsvc.Provider{
		marketsvc.ProviderFunc{Label: "yahoo", Fn: func(ctx context.Context) (market.Series, error) {
			return yahooClient.ChartSeries(ctx, "^BVSP", "3mo", "1d")
		}},
		marketsvc.ProviderFunc{Label: "stooq", Fn: func(ctx context.Context) (market.Series, error) {
			series, _, err := stooqClient.DailySeries(ctx, "^bvsp")
			return series, err
		}},
		marketsvc.ProviderFunc{Label: "brapi", Fn: func(ctx context.Context) (market.Series, error) {
			series, err := brapiClient.HistoricalSeries(ctx, "^BVSP", "1mo", "1d")
			if err == nil {
				return series, nil
			}
			return brapiClient.HistoricalSeries(ctx, "^BVSP", "3mo", "1d")
		}},
		marketsvc.ProviderFunc{Label: "bova11-proxy", Fn: func(ctx context.Context) (market.Series, error) {
			return bova11Proxy(ctx, brapiClient, stooqClient)
		}},
	}
	err = svc.RegisterPanel(market.Panel{
		ID:       market.PanelIBOV,
		Title:    "IBOV",
		Unit:     "pts",
		Schedule: cfg.PanelSchedule(market.PanelIBOV),
		TTL:      cfg.PanelTTL(market.PanelIBOV),
	}, marketsvc.NewChain(market.PanelIBOV, log, ibovProviders...))
	if err != nil {
		return err
	}

	// SPY: Yahoo, then Stooq, then Alpha Vantage daily.
	spyProviders := []marketsvc.Provider{
		marketsvc.ProviderFunc{Label: "yahoo", Fn: func(ctx context.Context) (market.Series, error) {
			return yahooClient.ChartSeries(ctx, "SPY", "3mo", "1d")
		}},
		marketsvc.ProviderFunc{Label: "stooq", Fn: func(ctx context.Context) (market.Series, error) {
			series, _, err := stooqClient.DailySeries(ctx, "spy.us")
			return series, err
		}},
	}
	if avClient != nil {
		spyProviders = append(spyProviders,
			marketsvc.ProviderFunc{Label: "alphavantage", Fn: func(ctx context.Context) (market.Series, error) {
				return avClient.DailySeries(ctx, "SPY")
			}},
		)
	}
	err = svc.RegisterPanel(market.Panel{
		ID:       market.PanelSPY,
		Title:    "SPY",
		Unit:     "USD",
		Schedule: cfg.PanelSchedule(market.PanelSPY),
		TTL:      cfg.PanelTTL(market.PanelSPY),
	}, marketsvc.NewChain(market.PanelSPY, log, spyProviders...))
	if err != nil {
		return err
	}

	// BTC: Alpha Vantage daily, then Binance (USDT as USD), then Coinbase.
	var btcProviders []marketsvc.Provider
	if avClient != nil {
		btcProviders = append(btcProviders,
			marketsvc.ProviderFunc{Label: "alphavantage", Fn: func(ctx context.Context) (market.Series, error) {
				return avClient.CryptoDaily(ctx, "BTC", "USD")
			}},
		)
	}
	btcProviders = append(btcProviders,
		marketsvc.ProviderFunc{Label: "binance", Fn: func(ctx context.Context) (market.Series, error) {
			return binanceClient.Klines(ctx, "BTCUSDT", "5m", 300)
		}},
		marketsvc.ProviderFunc{Label: "coinbase", Fn: func(ctx context.Context) (market.Series, error) {
			return coinbaseClient.Candles(ctx, "BTC-USD", 300)
		}},
	)
	err = svc.RegisterPanel(market.Panel{
		ID:       market.PanelBTC,
		Title:    "Bitcoin (BTC)",
		Unit:     "USD",
		Schedule: cfg.PanelSchedule(market.PanelBTC),
		TTL:      cfg.PanelTTL(market.PanelBTC),
	}, marketsvc.NewChain(market.PanelBTC, log, btcProviders...))
	if err != nil {
		return err
	}

	// Selic: the central bank is the only source there is.
	selicProviders := []marketsvc.Provider{
		marketsvc.ProviderFunc{Label: "bcb-sgs", Fn: func(ctx context.Context) (market.Series, error) {
			return bcbClient.SGSSeries(ctx, bcb.SelicSeriesCode)
		}},
	}
	return svc.RegisterPanel(market.Panel{
		ID:       market.PanelSelic,
		Title:    "Selic (meta BCB)",
		Unit:     "% a.a.",
		Schedule: cfg.PanelSchedule(market.PanelSelic),
		TTL:      cfg.PanelTTL(market.PanelSelic),
	}, marketsvc.NewChain(market.PanelSelic, log, selicProviders...))
}

// spotSeries turns a single spot rate into a two-point flat series so the
// panel still charts.
func spotSeries(ctx context.Context, client *exchangeratehost.Client, base, quote string) (market.Series, error) {
	rate, err := client.Latest(ctx, base, quote)
	if err != nil {
		return market.Series{}, err
	}
	now := time.Now().UTC()
	points := []market.Point{
		{Time: now.Add(-time.Minute), Value: rate},
		{Time: now, Value: rate},
	}
	return market.Series{Points: points}, nil
}

// bova11Proxy fetches the BOVA11 ETF history, from brapi with Stooq as the
// alternative source, and rescales it to an index level. Keeping a second
// source here matters: the chain step before this one is also brapi, so a
// brapi outage would otherwise take out both tails at once.
func bova11Proxy(ctx context.Context, brapiClient *brapi.Client, stooqClient *stooq.Client) (market.Series, error) {
	series, err := brapiClient.HistoricalSeries(ctx, "BOVA11", "3mo", "1d")
	if err != nil {
		var stooqErr error
		series, _, stooqErr = stooqClient.DailySeries(ctx, "bova11")
		if stooqErr != nil {
			return market.Series{}, fmt.Errorf("bova11 via brapi: %v; via stooq: %w", err, stooqErr)
		}
	}
	return normalizeSeries(series, bova11Base)
}

// normalizeSeries rescales a series so its first point equals base.
func normalizeSeries(series market.Series, base float64) (market.Series, error) {
	if series.Empty() || series.Points[0].Value <= 0 {
		return market.Series{}, fmt.Errorf("cannot normalize empty series")
	}
	first := series.Points[0].Value
	points := make([]market.Point, len(series.Points))
	for i, p := range series.Points {
		points[i] = market.Point{Time: p.Time, Value: p.Value / first * base}
	}
	return market.Series{Points: points}, nil
}
