// Package extractor scrapes headline, body, publication date and lead image
// from article pages. Each field is resolved by an ordered list of strategies;
// the first non-empty result wins and a fixed sentinel stands in when none do.
package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

const (
	NoHeadline = "No headline found."
	NoContent  = "No content found."
	NoDate     = "No publication date found."
)

// ContentClasses are the container classes searched for the article body, in order.
var ContentClasses = []string{
	"article-body",
	"story",
	"story-content",
	"article-content",
	"entry-content",
	"post-content",
	"content-body",
	"main-content",
}

// maxPageBytes bounds how much of a page is parsed.
const maxPageBytes = 5 << 20

type Extraction struct {
	Headline  string
	Body      string
	Published string
	ImageURL  string
}

// HasBody reports whether a body strategy matched.
func (e Extraction) HasBody() bool {
	return e.Body != "" && e.Body != NoContent
}

type strategy func(doc *goquery.Document) string

type Extractor struct {
	client    *http.Client
	userAgent string
}

func New(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Extract fetches url and applies the extraction strategies. Only a failed
// fetch is an error; missing fields come back as sentinels.
func (e *Extractor) Extract(ctx context.Context, url string) (Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Extraction{}, fmt.Errorf("create request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Extraction{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse page: %w", err)
	}

	return FromDocument(doc), nil
}

func FromDocument(doc *goquery.Document) Extraction {
	return Extraction{
		Headline:  firstOf(doc, headlineStrategies, NoHeadline),
		Body:      firstOf(doc, bodyStrategies, NoContent),
		Published: firstOf(doc, dateStrategies, NoDate),
		ImageURL:  firstOf(doc, imageStrategies, ""),
	}
}

func firstOf(doc *goquery.Document, strategies []strategy, fallback string) string {
	for _, s := range strategies {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return fallback
}

var headlineStrategies = []strategy{
	firstText("h1"),
	firstText("h2"),
}

var bodyStrategies = append(
	lo.Map(ContentClasses, func(class string, _ int) strategy {
		return firstText("." + class)
	}),
	paragraphs,
)

var dateStrategies = []strategy{
	timeElement,
	metaContent(`meta[property="article:published_time"]`),
	metaContent(`meta[property="og:published_time"]`),
	metaContent(`meta[name="date"]`),
}

var imageStrategies = []strategy{
	metaContent(`meta[property="og:image"]`),
}

func firstText(selector string) strategy {
	return func(doc *goquery.Document) string {
		return collapse(doc.Find(selector).First().Text())
	}
}

func paragraphs(doc *goquery.Document) string {
	texts := doc.Find("p").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	return strings.Join(lo.Compact(texts), "\n")
}

func timeElement(doc *goquery.Document) string {
	t := doc.Find("time").First()
	if dt, ok := t.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return dt
	}
	return t.Text()
}

func metaContent(selector string) strategy {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return v
	}
}

// collapse trims each line of a container's text and drops the blank ones
// that markup indentation leaves behind.
func collapse(text string) string {
	lines := lo.Map(strings.Split(text, "\n"), func(l string, _ int) string {
		return strings.TrimSpace(l)
	})
	return strings.Join(lo.Compact(lines), "\n")
}
