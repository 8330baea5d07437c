// Package pipeline drives one pass over the configured feeds: fetch entries,
// skip published ones, extract, summarize, compose and post each article, and
// record it in the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/0x0BSoD/newsRelay/internal/extractor"
	"github.com/0x0BSoD/newsRelay/internal/image"
	"github.com/0x0BSoD/newsRelay/internal/markup"
	"github.com/0x0BSoD/newsRelay/internal/model"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

type Extractor interface {
	Extract(ctx context.Context, url string) (extractor.Extraction, error)
}

type Summarizer interface {
	Transform(ctx context.Context, headline, body string) (model.Content, error)
}

type Ledger interface {
	Contains(link string) bool
	Add(ctx context.Context, link string) error
}

type ImageDownloader interface {
	Download(ctx context.Context, url string) (string, error)
}

type Publisher interface {
	SendPhoto(ctx context.Context, path, caption string) error
	SendText(ctx context.Context, text string) error
}

type Reporter interface {
	Notify(format string, args ...any)
}

const (
	ContentFromPage = "page"
	ContentFromFeed = "feed"
)

type Options struct {
	// ContentSource is ContentFromPage (scrape the article) or ContentFromFeed.
	ContentSource string
	// RecordBeforeExtract marks links as published before processing them.
	// Failed articles are then never retried.
	RecordBeforeExtract bool
	SendImages          bool
	ImageDir            string
	PostDelay           time.Duration
	Caption             markup.Options
}

type Pipeline struct {
	sources    []Source
	extractor  Extractor
	summarizer Summarizer
	ledger     Ledger
	images     ImageDownloader
	publisher  Publisher
	reporter   Reporter
	opts       Options
}

func New(
	sources []Source,
	extractor Extractor,
	summarizer Summarizer,
	ledger Ledger,
	images ImageDownloader,
	publisher Publisher,
	reporter Reporter,
	opts Options,
) *Pipeline {
	if opts.ContentSource == "" {
		opts.ContentSource = ContentFromPage
	}
	return &Pipeline{
		sources:    sources,
		extractor:  extractor,
		summarizer: summarizer,
		ledger:     ledger,
		images:     images,
		publisher:  publisher,
		reporter:   reporter,
		opts:       opts,
	}
}

// Start runs a pass immediately and then on every tick of interval until ctx
// is done.
func (p *Pipeline) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Run(ctx)
		}
	}
}

// Run processes every source in order. A failing source is logged and
// reported; the remaining sources still run. Downloaded images are removed at
// the end whatever happened.
func (p *Pipeline) Run(ctx context.Context) Stats {
	var stats Stats
	started := time.Now()

	defer func() {
		if p.opts.ImageDir == "" {
			return
		}
		if err := image.Cleanup(p.opts.ImageDir); err != nil {
			slog.Warn("failed to clean image dir", "dir", p.opts.ImageDir, "err", err)
		}
	}()

	for _, src := range p.sources {
		if ctx.Err() != nil {
			break
		}
		err := p.runSource(ctx, src, &stats)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if err != nil {
			stats.FailedSources++
			slog.Error("feed failed", "feed", src.Name(), "err", err)
			p.notify("feed %s failed: %v", src.Name(), err)
		}
	}

	slog.Info("run finished", "took", time.Since(started).Round(time.Millisecond), "stats", stats)
	return stats
}

func (p *Pipeline) runSource(ctx context.Context, src Source, stats *Stats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	items, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	slog.Info("feed fetched", "feed", src.Name(), "items", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		stats.Fetched++
		outcome, err := p.processItem(ctx, item)
		stats.add(outcome)
		if err != nil {
			return err
		}

		if outcome.attemptedSend() {
			if err := sleep(ctx, p.opts.PostDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// processItem walks one entry through the article state machine. Only a ledger
// write failure is returned as an error; every other failure ends in Failed.
func (p *Pipeline) processItem(ctx context.Context, item model.Item) (Outcome, error) {
	if p.ledger.Contains(item.Link) {
		slog.Debug("already published", "link", item.Link)
		return Skipped, nil
	}

	if p.opts.RecordBeforeExtract {
		if err := p.ledger.Add(ctx, item.Link); err != nil {
			return Failed, fmt.Errorf("record link: %w", err)
		}
	}

	article, ok := p.extract(ctx, item)
	if !ok {
		slog.Warn("no content, skipping", "link", item.Link)
		return Failed, nil
	}

	content, err := p.summarizer.Transform(ctx, article.Title, article.Body)
	if err != nil {
		slog.Error("failed to summarize, skipping", "link", item.Link, "err", err)
		return Failed, nil
	}

	post := markup.Post{
		Title:     content.Title,
		Body:      content.Body,
		Link:      article.Link,
		Published: article.Published,
		Hashtags:  withTopic(content.Hashtags, article.Topic),
	}

	outcome := p.publish(ctx, post, article.ImageURL)
	if outcome == Failed {
		return Failed, nil
	}

	slog.Info("article published", "title", content.Title, "link", article.Link, "outcome", outcome)

	if !p.opts.RecordBeforeExtract {
		if err := p.ledger.Add(ctx, article.Link); err != nil {
			return outcome, fmt.Errorf("record link: %w", err)
		}
	}
	return outcome, nil
}

// extract builds the article from the page or the feed entry. Feed text fills
// in when the page cannot be fetched or yields no body; ok is false when
// neither has any text.
func (p *Pipeline) extract(ctx context.Context, item model.Item) (model.Article, bool) {
	article := model.Article{
		Link:      item.Link,
		Title:     item.Title,
		Body:      item.Text,
		Published: item.Published,
		ImageURL:  item.ImageURL,
		Topic:     item.Topic,
	}

	if p.opts.ContentSource == ContentFromPage {
		page, err := p.extractor.Extract(ctx, item.Link)
		if err != nil {
			slog.Warn("failed to extract article, using feed text", "link", item.Link, "err", err)
		} else {
			if page.Headline != extractor.NoHeadline {
				article.Title = page.Headline
			}
			if page.HasBody() {
				article.Body = page.Body
			}
			if (article.Published == "" || article.Published == model.NotAvailable) && page.Published != extractor.NoDate {
				article.Published = page.Published
			}
			if article.ImageURL == "" {
				article.ImageURL = page.ImageURL
			}
		}
	}

	if strings.TrimSpace(article.Body) == "" {
		return article, false
	}
	if strings.TrimSpace(article.Title) == "" {
		article.Title = item.Title
	}
	return article, true
}

// publish tries the photo post first and falls back to a text-only message,
// recomposing the caption for the larger limit.
func (p *Pipeline) publish(ctx context.Context, post markup.Post, imageURL string) Outcome {
	if p.opts.SendImages && imageURL != "" && p.images != nil {
		if p.sendWithImage(ctx, post, imageURL) {
			return PublishedWithImage
		}
	}

	opts := p.opts.Caption
	opts.WithImage = false
	if err := p.publisher.SendText(ctx, markup.Compose(post, opts)); err != nil {
		slog.Error("failed to send message", "link", post.Link, "err", err)
		return Failed
	}
	return PublishedTextOnly
}

func (p *Pipeline) sendWithImage(ctx context.Context, post markup.Post, imageURL string) bool {
	path, err := p.images.Download(ctx, imageURL)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, image.ErrNotImage) || errors.Is(err, image.ErrTooLarge) {
			level = slog.LevelInfo
		}
		slog.Log(ctx, level, "image unusable, sending text only", "image", imageURL, "err", err)
		return false
	}

	opts := p.opts.Caption
	opts.WithImage = true
	if err := p.publisher.SendPhoto(ctx, path, markup.Compose(post, opts)); err != nil {
		slog.Warn("failed to send photo, sending text only", "link", post.Link, "err", err)
		return false
	}
	return true
}

func (p *Pipeline) notify(format string, args ...any) {
	if p.reporter != nil {
		p.reporter.Notify(format, args...)
	}
}

// withTopic appends the feed topic as a hashtag.
func withTopic(tags []string, topic string) []string {
	topic = strings.TrimPrefix(strings.TrimSpace(topic), "#")
	if topic == "" {
		return tags
	}
	tag := "#" + strings.Join(strings.Fields(topic), "_")
	return lo.Uniq(append(append([]string(nil), tags...), tag))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
