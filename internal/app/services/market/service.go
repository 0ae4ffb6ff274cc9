package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/market"
	"github.com/lucasmieiro/finterm/internal/app/events"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// maxStoredPoints caps how much series history one snapshot carries.
const maxStoredPoints = 300

// Service manages the registered panels and their snapshots.
type Service struct {
	store storage.SnapshotStore
	hub   *events.Hub
	log   *logger.Logger

	mu     sync.RWMutex
	order  []string
	panels map[string]market.Panel
	chains map[string]*Chain
}

// New constructs a market service.
func New(store storage.SnapshotStore, hub *events.Hub, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("market")
	}
	return &Service{
		store:  store,
		hub:    hub,
		log:    log,
		panels: make(map[string]market.Panel),
		chains: make(map[string]*Chain),
	}
}

// RegisterPanel adds a panel with its fallback chain.
func (s *Service) RegisterPanel(panel market.Panel, chain *Chain) error {
	if panel.ID == "" {
		return fmt.Errorf("panel id is required")
	}
	if chain == nil {
		return fmt.Errorf("panel %s needs a provider chain", panel.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.panels[panel.ID]; exists {
		return fmt.Errorf("panel %s already registered", panel.ID)
	}
	s.panels[panel.ID] = panel
	s.chains[panel.ID] = chain
	s.order = append(s.order, panel.ID)
	return nil
}

// Panels returns the registered panels in registration order.
func (s *Service) Panels() []market.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]market.Panel, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.panels[id])
	}
	return out
}

// Panel returns one panel definition.
func (s *Service) Panel(id string) (market.Panel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	panel, ok := s.panels[id]
	if !ok {
		return market.Panel{}, fmt.Errorf("panel %s: %w", id, storage.ErrNotFound)
	}
	return panel, nil
}

// Refresh runs the panel's fallback chain and stores a snapshot. When the
// latest stored snapshot is younger than the panel TTL the call is a no-op
// unless force is set; the second return value reports whether providers
// were actually hit.
func (s *Service) Refresh(ctx context.Context, panelID string, force bool) (market.Snapshot, bool, error) {
	s.mu.RLock()
	panel, ok := s.panels[panelID]
	chain := s.chains[panelID]
	s.mu.RUnlock()
	if !ok {
		return market.Snapshot{}, false, fmt.Errorf("panel %s: %w", panelID, storage.ErrNotFound)
	}

	if !force && panel.TTL > 0 {
		latest, err := s.store.LatestSnapshot(ctx, panelID)
		if err == nil && time.Since(latest.CollectedAt) < panel.TTL {
			return latest, false, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return market.Snapshot{}, false, err
		}
	}

	series, source, err := chain.Fetch(ctx)
	if err != nil {
		return market.Snapshot{}, true, err
	}

	points := series.Points
	if len(points) > maxStoredPoints {
		points = points[len(points)-maxStoredPoints:]
	}

	snap := market.Snapshot{
		Panel:       panelID,
		Price:       series.Last(),
		Source:      source,
		Points:      points,
		CollectedAt: time.Now().UTC(),
	}
	snap, err = s.store.CreateSnapshot(ctx, snap)
	if err != nil {
		return market.Snapshot{}, true, err
	}

	s.log.WithField("panel", panelID).
		WithField("source", source).
		WithField("price", snap.Price).
		Info("panel refreshed")

	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:   events.TypePanelUpdated,
			Panel:  panelID,
			Source: source,
			Price:  snap.Price,
			At:     snap.CollectedAt,
		})
	}
	return snap, true, nil
}

// Latest returns the most recent snapshot for a panel.
func (s *Service) Latest(ctx context.Context, panelID string) (market.Snapshot, error) {
	if _, err := s.Panel(panelID); err != nil {
		return market.Snapshot{}, err
	}
	return s.store.LatestSnapshot(ctx, panelID)
}

// History returns stored snapshots for a panel, newest first.
func (s *Service) History(ctx context.Context, panelID string, limit int) ([]market.Snapshot, error) {
	if _, err := s.Panel(panelID); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, panelID, limit)
}
