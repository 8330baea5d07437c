// Package markup renders posts as Telegram HTML captions that fit the
// channel's length limits.
package markup

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Telegram limits, counted in characters of the rendered caption.
const (
	PhotoCaptionLimit = 1024
	TextMessageLimit  = 4096
)

const ellipsis = "..."

type Post struct {
	Title     string
	Body      string
	Link      string
	Published string
	Hashtags  []string
}

type Options struct {
	// TitleMarker is placed before the bold title, e.g. an emoji.
	TitleMarker    string
	ReadMoreLabel  string
	PublishedLabel string
	WithImage      bool
}

// Limit returns the applicable caption limit.
func (o Options) Limit() int {
	if o.WithImage {
		return PhotoCaptionLimit
	}
	return TextMessageLimit
}

// Compose renders p and, when it is too long, shortens the body so the whole
// caption fits the limit. Title, link, date and hashtags are kept in full
// unless they alone overflow it; the result never exceeds the limit.
func Compose(p Post, opts Options) string {
	limit := opts.Limit()

	var (
		head = titleBlock(p.Title, opts.TitleMarker)
		tail = strings.TrimLeft(linkBlock(p.Link, opts.ReadMoreLabel)+publishedBlock(p.Published, opts.PublishedLabel)+hashtagBlock(p.Hashtags), "\n")
		body = EscapeForHTML(strings.TrimSpace(p.Body))
	)

	if full := render(head, body, tail); length(full) <= limit {
		return full
	}

	// The body brings its own "\n\n" separator.
	available := limit - length(render(head, "", tail)) - 2
	if available > len(ellipsis) {
		return render(head, truncateEscaped(strings.TrimSpace(p.Body), available-len(ellipsis))+ellipsis, tail)
	}

	// Nothing left for the body: drop it and shorten the title as a last resort.
	// When the fixed blocks alone overflow, date and hashtags go first, then the link.
	var room int
	for _, t := range []string{tail, linkBlock(p.Link, opts.ReadMoreLabel), ""} {
		tail = t
		if room = limit - length(render(titleBlock("", opts.TitleMarker), "", tail)); room > 0 {
			break
		}
	}
	short := opts.TitleMarker + "<b>" + truncateEscaped(strings.TrimSpace(p.Title), room) + "</b>"
	return render(short, "", tail)
}

func render(head, body, tail string) string {
	var b strings.Builder
	b.WriteString(head)
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	if tail != "" {
		b.WriteString("\n\n")
		b.WriteString(tail)
	}
	return b.String()
}

func titleBlock(title, marker string) string {
	return marker + "<b>" + EscapeForHTML(strings.TrimSpace(title)) + "</b>"
}

func linkBlock(link, label string) string {
	if link == "" {
		return ""
	}
	if label == "" {
		label = "Read more"
	}
	return `<a href="` + EscapeForHTML(link) + `">` + EscapeForHTML(label) + `</a>`
}

func publishedBlock(published, label string) string {
	published = strings.TrimSpace(published)
	if label == "" || published == "" || published == "N/A" {
		return ""
	}
	return "\n<i>" + EscapeForHTML(label) + ": " + EscapeForHTML(published) + "</i>"
}

func hashtagBlock(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "\n\n" + EscapeForHTML(strings.Join(tags, " "))
}

// EscapeForHTML escapes text for Telegram's HTML parse mode.
func EscapeForHTML(s string) string {
	return html.EscapeString(s)
}

// truncateEscaped escapes s rune by rune and stops before the escaped output
// would exceed max characters, so no entity is ever cut in half.
func truncateEscaped(s string, max int) string {
	var (
		b strings.Builder
		n int
	)
	for _, r := range s {
		piece := EscapeForHTML(string(r))
		l := utf8.RuneCountInString(piece)
		if n+l > max {
			break
		}
		b.WriteString(piece)
		n += l
	}
	return strings.TrimRight(b.String(), " \n\t")
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
