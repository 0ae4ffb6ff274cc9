package newsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Mercado - Google News</title>
    <item>
      <title>Ibovespa fecha em alta de 1,2%</title>
      <link>https://example.com/ibov-alta</link>
      <pubDate>Mon, 05 Feb 2024 21:10:00 -0300</pubDate>
      <source url="https://example.com">Valor</source>
    </item>
    <item>
      <title>Dólar recua com exterior positivo</title>
      <link>https://example.com/dolar-recua</link>
      <pubDate>Mon, 05 Feb 2024 20:02:00 -0300</pubDate>
    </item>
    <item>
      <title>  </title>
      <link>https://example.com/vazio</link>
    </item>
  </channel>
</rss>`

func TestFetchFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	client := New(server.Client(), nil)
	items, err := client.FetchFeed(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 headlines (blank title skipped), got %d", len(items))
	}
	if items[0].Source != "Valor" {
		t.Fatalf("expected item source, got %q", items[0].Source)
	}
	if items[1].Source != "Mercado - Google News" {
		t.Fatalf("expected channel title fallback, got %q", items[1].Source)
	}
	if items[0].PublishedAt.IsZero() {
		t.Fatal("expected a parsed pubDate")
	}
	if items[0].PublishedAt.Location() != time.UTC {
		t.Fatal("expected pubDate normalized to UTC")
	}
}

func TestFetchFeedEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>vazio</title></channel></rss>`))
	}))
	defer server.Close()

	client := New(server.Client(), nil)
	if _, err := client.FetchFeed(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error for a feed without items")
	}
}
