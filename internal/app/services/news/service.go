package news

import (
	"context"
	"fmt"

	domain "github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/app/events"
	"github.com/lucasmieiro/finterm/internal/app/providers/newsfeed"
	"github.com/lucasmieiro/finterm/internal/app/storage"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// defaultCap bounds how many headlines are kept per refresh.
const defaultCap = 12

// Service pulls headlines from configured feeds and stores the freshest set.
type Service struct {
	client *newsfeed.Client
	store  storage.HeadlineStore
	hub    *events.Hub
	log    *logger.Logger
	feeds  []string
	cap    int
}

// New constructs a news service. Empty feeds default to the Google News
// market query; a non-positive cap defaults to 12.
func New(client *newsfeed.Client, store storage.HeadlineStore, hub *events.Hub, feeds []string, headlineCap int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("news")
	}
	if len(feeds) == 0 {
		feeds = []string{newsfeed.DefaultFeedURL}
	}
	if headlineCap <= 0 {
		headlineCap = defaultCap
	}
	return &Service{
		client: client,
		store:  store,
		hub:    hub,
		log:    log,
		feeds:  feeds,
		cap:    headlineCap,
	}
}

// Refresh fetches feeds in order and stores the first non-empty result.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	var lastErr error
	for _, feed := range s.feeds {
		items, err := s.client.FetchFeed(ctx, feed)
		if err != nil {
			lastErr = err
			s.log.WithError(err).WithField("feed", feed).Debug("feed failed, trying next")
			continue
		}
		if len(items) > s.cap {
			items = items[:s.cap]
		}
		if err := s.store.ReplaceHeadlines(ctx, items); err != nil {
			return 0, err
		}

		s.log.WithField("feed", feed).
			WithField("headlines", len(items)).
			Info("headlines refreshed")
		if s.hub != nil {
			s.hub.Publish(events.Event{
				Type:   events.TypeNewsUpdated,
				Source: feed,
				Count:  len(items),
			})
		}
		return len(items), nil
	}
	return 0, fmt.Errorf("all news feeds failed: %w", lastErr)
}

// Headlines returns the stored headlines.
func (s *Service) Headlines(ctx context.Context, limit int) ([]domain.Headline, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	return s.store.ListHeadlines(ctx, limit)
}
