package heatmap

import (
	"context"
	"errors"
	"sort"
	"time"

	domain "github.com/lucasmieiro/finterm/internal/app/domain/heatmap"
	"github.com/lucasmieiro/finterm/internal/app/events"
	"github.com/lucasmieiro/finterm/internal/app/providers/brapi"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// ErrDisabled is returned when the heatmap feature is off because no brapi
// token is configured.
var ErrDisabled = errors.New("heatmap disabled: brapi token not configured")

// defaultLimit is how many tickers feed the sector aggregation.
const defaultLimit = 100

// Service builds the B3 sector heatmap from the brapi quote list.
type Service struct {
	client *brapi.Client
	store  storage.HeatmapStore
	hub    *events.Hub
	log    *logger.Logger
	limit  int
}

// New constructs a heatmap service. A non-positive limit defaults to 100.
func New(client *brapi.Client, store storage.HeatmapStore, hub *events.Hub, limit int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("heatmap")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Service{client: client, store: store, hub: hub, log: log, limit: limit}
}

// Enabled reports whether the feature is available.
func (s *Service) Enabled() bool {
	return s.client != nil && s.client.HasToken()
}

// Refresh fetches the quote list and stores a freshly aggregated board.
func (s *Service) Refresh(ctx context.Context) (domain.Board, error) {
	if !s.Enabled() {
		return domain.Board{}, ErrDisabled
	}

	tickers, err := s.client.QuoteList(ctx, s.limit)
	if err != nil {
		return domain.Board{}, err
	}

	board := aggregate(tickers)
	board.Source = "brapi"
	board.CollectedAt = time.Now().UTC()

	if err := s.store.SaveBoard(ctx, board); err != nil {
		return domain.Board{}, err
	}

	s.log.WithField("sectors", len(board.Cells)).
		WithField("tickers", len(tickers)).
		Info("heatmap refreshed")
	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:   events.TypeHeatmapUpdated,
			Source: board.Source,
			Count:  len(board.Cells),
		})
	}
	return board, nil
}

// Board returns the latest stored board.
func (s *Service) Board(ctx context.Context) (domain.Board, error) {
	if !s.Enabled() {
		return domain.Board{}, ErrDisabled
	}
	return s.store.LatestBoard(ctx)
}

// aggregate groups tickers by sector. Tickers without a sector land in
// "Outros".
func aggregate(tickers []brapi.Ticker) domain.Board {
	type bucket struct {
		changeSum float64
		volume    float64
		count     int
		topTicker string
		topVolume float64
		topMove   float64
	}

	buckets := make(map[string]*bucket)
	for _, ticker := range tickers {
		sector := ticker.Sector
		if sector == "" {
			sector = "Outros"
		}
		b, ok := buckets[sector]
		if !ok {
			b = &bucket{}
			buckets[sector] = b
		}
		b.changeSum += ticker.ChangePct
		b.volume += ticker.Volume
		b.count++
		if ticker.Volume >= b.topVolume {
			b.topVolume = ticker.Volume
			b.topTicker = ticker.Symbol
			b.topMove = ticker.ChangePct
		}
	}

	cells := make([]domain.Cell, 0, len(buckets))
	for sector, b := range buckets {
		cells = append(cells, domain.Cell{
			Sector:        sector,
			AvgChangePct:  b.changeSum / float64(b.count),
			TotalVolume:   b.volume,
			Constituents:  b.count,
			TopTicker:     b.topTicker,
			TopTickerMove: b.topMove,
		})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].TotalVolume > cells[j].TotalVolume })
	return domain.Board{Cells: cells}
}
