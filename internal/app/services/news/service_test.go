package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/events"
	"github.com/lucasmieiro/finterm/internal/app/providers/newsfeed"
	"github.com/lucasmieiro/finterm/internal/app/storage/memory"
)

func rssServer(t *testing.T, count int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>`)
		for i := 0; i < count; i++ {
			fmt.Fprintf(w, `<item><title>Manchete %d</title><link>https://example.com/%d</link><pubDate>Mon, 05 Feb 2024 12:00:00 -0300</pubDate></item>`, i, i)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
}

func TestRefreshStoresCappedHeadlines(t *testing.T) {
	feed := rssServer(t, 20)
	defer feed.Close()

	store := memory.New()
	hub := events.NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	svc := New(newsfeed.New(feed.Client(), nil), store, hub, []string{feed.URL}, 5, nil)
	count, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 headlines after cap, got %d", count)
	}

	items, err := svc.Headlines(context.Background(), 0)
	if err != nil {
		t.Fatalf("Headlines: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 stored headlines, got %d", len(items))
	}
	if items[0].Title != "Manchete 0" {
		t.Fatalf("expected document order preserved, got %q", items[0].Title)
	}

	select {
	case evt := <-ch:
		if evt.Type != events.TypeNewsUpdated || evt.Count != 5 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a news_updated event")
	}
}

func TestRefreshFeedFallback(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	good := rssServer(t, 3)
	defer good.Close()

	svc := New(newsfeed.New(good.Client(), nil), memory.New(), nil, []string{broken.URL, good.URL}, 12, nil)
	count, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 headlines from the fallback feed, got %d", count)
	}
}

func TestRefreshAllFeedsFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	svc := New(newsfeed.New(broken.Client(), nil), memory.New(), nil, []string{broken.URL}, 12, nil)
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error when every feed fails")
	}
}
