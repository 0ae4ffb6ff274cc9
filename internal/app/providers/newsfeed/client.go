// Package newsfeed pulls headlines from RSS feeds. The default feed is the
// Google News pt-BR market query; any RSS 2.0 feed works.
package newsfeed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucasmieiro/finterm/internal/app/domain/news"
	"github.com/lucasmieiro/finterm/internal/httputil"
	"github.com/lucasmieiro/finterm/pkg/logger"
)

// DefaultFeedURL is the Google News RSS query used when no feeds are
// configured.
const DefaultFeedURL = "https://news.google.com/rss/search?q=mercado%20financeiro&hl=pt-BR&gl=BR&ceid=BR:pt-419"

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  string `xml:"source"`
}

// pubDate formats seen in the wild, tried in order.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Client fetches and parses RSS feeds.
type Client struct {
	client *http.Client
	log    *logger.Logger
}

// New constructs a client.
func New(client *http.Client, log *logger.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("newsfeed")
	}
	return &Client{client: client, log: log}
}

// FetchFeed downloads one feed and returns its headlines in document order.
func (c *Client) FetchFeed(ctx context.Context, feedURL string) ([]news.Headline, error) {
	resp, err := httputil.Get(ctx, c.client, feedURL)
	if err != nil {
		return nil, err
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	items := make([]news.Headline, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		source := strings.TrimSpace(item.Source)
		if source == "" {
			source = strings.TrimSpace(doc.Channel.Title)
		}
		items = append(items, news.Headline{
			Title:       title,
			Link:        strings.TrimSpace(item.Link),
			Source:      source,
			PublishedAt: parsePubDate(item.PubDate),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("feed %s returned no items", feedURL)
	}
	return items, nil
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if when, err := time.Parse(layout, raw); err == nil {
			return when.UTC()
		}
	}
	return time.Time{}
}
