// Package source reads RSS and Atom feeds into pipeline items.
package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/SlyMarbo/rss"
	"github.com/go-shiori/go-readability"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsRelay/internal/image"
	"github.com/0x0BSoD/newsRelay/internal/model"
)

// BrowserUserAgent is sent with every feed and page request; several news
// sites refuse clients without one.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

const defaultTimeout = 10 * time.Second

// contextTransport injects a context into every outgoing request so that
// context cancellation and deadlines propagate through the rss library, and
// turns non-2xx responses into errors.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(t.ctx)
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	// The rss library parses any body it gets, error pages included.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

type RSSSource struct {
	URL            string
	Topic          string
	Timeout        time.Duration
	MaxEntries     int
	FilterKeywords []string
	Transport      http.RoundTripper
}

func NewRSSSourceFromModel(m model.Source) RSSSource {
	return RSSSource{
		URL:     m.FeedURL,
		Topic:   m.Topic,
		Timeout: defaultTimeout,
	}
}

// Fetch returns the feed entries in feed order, minus filtered ones, capped
// at MaxEntries when it is positive.
func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	feed, err := s.loadFeed(ctx)
	if err != nil {
		return nil, err
	}

	items := lo.Map(feed.Items, func(item *rss.Item, _ int) model.Item {
		description := itemDescription(item)
		return model.Item{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: description,
			Text:        itemText(item, description),
			Published:   formatDate(item.Date),
			ImageURL:    image.ExtractURL(description),
			Categories:  item.Categories,
			Topic:       s.Topic,
		}
	})

	items = lo.Reject(items, func(item model.Item, _ int) bool {
		return item.Link == "" || s.itemMustSkipped(item)
	})

	if s.MaxEntries > 0 && len(items) > s.MaxEntries {
		items = items[:s.MaxEntries]
	}

	return items, nil
}

func (s RSSSource) itemMustSkipped(item model.Item) bool {
	categories := lo.Map(lo.Uniq(item.Categories), func(c string, _ int) string { return strings.ToLower(c) })
	title := strings.ToLower(item.Title)
	for _, keyword := range s.FilterKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if lo.Contains(categories, keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

// itemDescription is the raw markup of the entry's description, falling back
// to the full content for feeds that only fill content:encoded.
func itemDescription(item *rss.Item) string {
	if d := strings.TrimSpace(item.Summary); d != "" {
		return d
	}
	return strings.TrimSpace(item.Content)
}

var redundantNewLines = regexp.MustCompile(`\n{3,}`)

// itemText returns the richest available plain text for an item.
// Content (full body) is preferred over the description; readability drops
// boilerplate, and plain tag stripping covers fragments it rejects.
func itemText(item *rss.Item, description string) string {
	raw := strings.TrimSpace(item.Content)
	if raw == "" {
		raw = description
	}
	if raw == "" {
		return ""
	}

	if doc, err := readability.FromReader(strings.NewReader(raw), nil); err == nil {
		if text := strings.TrimSpace(doc.TextContent); text != "" {
			return redundantNewLines.ReplaceAllString(text, "\n\n")
		}
	}

	return StripTags(raw)
}

// StripTags removes images and markup from an HTML fragment and returns its
// unescaped text.
func StripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("img, script, style").Remove()
	return strings.TrimSpace(doc.Text())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return model.NotAvailable
	}
	return t.UTC().Format(time.RFC1123)
}

func (s RSSSource) loadFeed(ctx context.Context) (*rss.Feed, error) {
	base := s.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{
		Transport: contextTransport{ctx: ctx, base: base},
		Timeout:   timeout,
	}
	return rss.FetchByClient(s.URL, client)
}

func (s RSSSource) Name() string {
	if s.Topic != "" {
		return s.Topic
	}
	return s.URL
}
