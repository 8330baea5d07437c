// Package summary asks a language model to translate or summarize an article
// and turns the free-text answer back into a title, a body and hashtags.
package summary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/0x0BSoD/newsRelay/internal/model"
)

var ErrEmptyResponse = errors.New("model returned no text")

// Generator is a single prompt-in, text-out call to a model backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	ModeTranslate = "translate"
	ModeSummarize = "summarize"
)

type Options struct {
	Mode        string
	Language    string
	Hashtags    bool
	CatchyTitle bool
	// Instruction is appended to the built prompt when set.
	Instruction string
}

type Client struct {
	gen  Generator
	opts Options
}

func NewClient(gen Generator, opts Options) *Client {
	if opts.Mode == "" {
		opts.Mode = ModeSummarize
	}
	if opts.Language == "" {
		opts.Language = "Farsi"
	}
	return &Client{gen: gen, opts: opts}
}

// Transform sends headline and body in one request and parses the answer.
func (c *Client) Transform(ctx context.Context, headline, body string) (model.Content, error) {
	text, err := c.gen.Generate(ctx, BuildPrompt(c.opts, headline, body))
	if err != nil {
		return model.Content{}, fmt.Errorf("generate: %w", err)
	}

	return ParseResponse(text, c.opts.Hashtags)
}

func BuildPrompt(opts Options, headline, body string) string {
	var b strings.Builder

	switch opts.Mode {
	case ModeTranslate:
		fmt.Fprintf(&b, "Translate the following news article to %s. ", opts.Language)
		b.WriteString("Only provide the translation, without any text in the original language.\n")
	default:
		fmt.Fprintf(&b, "Summarize the following news article in %s in a few short paragraphs ", opts.Language)
		b.WriteString("and write a new title for it.\n")
	}

	b.WriteString("Put the title alone on the first line and the text on the following lines. ")
	b.WriteString("Do not use Markdown.\n")
	if opts.CatchyTitle {
		b.WriteString("Make the title short and attention-grabbing.\n")
	}
	if opts.Hashtags {
		fmt.Fprintf(&b, "On the last line, add three to five relevant hashtags in %s, separated by spaces.\n", opts.Language)
	}
	if opts.Instruction != "" {
		b.WriteString(strings.TrimSpace(opts.Instruction))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nTitle: %s\n\nText:\n%s\n", headline, body)
	return b.String()
}

// titleNoise are literal fragments models tend to wrap titles with.
var titleNoise = []string{"**", "##", "Title:", "Headline:", "عنوان:"}

// ParseResponse reads the model output as: title on the first non-blank line,
// body on the rest, and (when withHashtags is set) a trailing line of #tags.
// A single line gives an empty body; no lines at all is ErrEmptyResponse.
func ParseResponse(text string, withHashtags bool) (model.Content, error) {
	lines := lo.Map(strings.Split(strings.TrimSpace(text), "\n"), func(l string, _ int) string {
		return strings.TrimSpace(l)
	})
	if lines[0] == "" {
		return model.Content{}, ErrEmptyResponse
	}

	out := model.Content{Title: cleanTitle(lines[0])}
	if out.Title == "" {
		return model.Content{}, fmt.Errorf("%w: blank title line %q", ErrEmptyResponse, lines[0])
	}
	rest := lines[1:]

	if withHashtags && len(rest) > 0 {
		if tags, ok := parseHashtags(rest[len(rest)-1]); ok {
			out.Hashtags = tags
			rest = rest[:len(rest)-1]
		}
	}

	body := strings.TrimSpace(strings.Join(rest, "\n"))
	out.Body = blankLines.ReplaceAllString(body, "\n\n")
	return out, nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func cleanTitle(title string) string {
	for _, noise := range titleNoise {
		title = strings.ReplaceAll(title, noise, "")
	}
	return strings.TrimSpace(title)
}

// parseHashtags accepts a line only when every word is a #tag.
func parseHashtags(line string) ([]string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	for _, f := range fields {
		if len(f) < 2 || !strings.HasPrefix(f, "#") {
			return nil, false
		}
	}
	return lo.Uniq(fields), true
}
