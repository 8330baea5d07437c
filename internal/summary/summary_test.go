package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/newsRelay/internal/model"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		hashtags bool
		want     model.Content
	}{
		{
			name: "single line",
			text: "Only a title",
			want: model.Content{Title: "Only a title"},
		},
		{
			name: "title and paragraphs",
			text: "\n**Title:** Budget day\n\nFirst paragraph.\n\n\n\nSecond paragraph.\n",
			want: model.Content{Title: "Budget day", Body: "First paragraph.\n\nSecond paragraph."},
		},
		{
			name:     "trailing hashtags",
			text:     "عنوان: خبر\nمتن خبر\n#کانادا #اقتصاد #کانادا",
			hashtags: true,
			want:     model.Content{Title: "خبر", Body: "متن خبر", Hashtags: []string{"#کانادا", "#اقتصاد"}},
		},
		{
			name:     "hashtag line ignored when disabled",
			text:     "Title\nBody\n#one #two",
			hashtags: false,
			want:     model.Content{Title: "Title", Body: "Body\n#one #two"},
		},
		{
			name:     "mixed last line is body",
			text:     "Title\nBody\nsee #one",
			hashtags: true,
			want:     model.Content{Title: "Title", Body: "Body\nsee #one"},
		},
		{
			name:     "title then hashtags only",
			text:     "## Title\n#tag",
			hashtags: true,
			want:     model.Content{Title: "Title", Hashtags: []string{"#tag"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.text, tt.hashtags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResponseEmpty(t *testing.T) {
	for _, text := range []string{"", "  \n\n ", "**"} {
		_, err := ParseResponse(text, true)
		require.ErrorIs(t, err, ErrEmptyResponse, "text %q", text)
	}
}

type fakeGenerator struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestClientTransform(t *testing.T) {
	gen := &fakeGenerator{reply: "New title\nShort summary.\n#news"}
	c := NewClient(gen, Options{Mode: ModeSummarize, Language: "German", Hashtags: true, CatchyTitle: true})

	got, err := c.Transform(context.Background(), "Old title", "Long body")
	require.NoError(t, err)
	assert.Equal(t, model.Content{Title: "New title", Body: "Short summary.", Hashtags: []string{"#news"}}, got)

	assert.Contains(t, gen.prompt, "Summarize")
	assert.Contains(t, gen.prompt, "German")
	assert.Contains(t, gen.prompt, "attention-grabbing")
	assert.Contains(t, gen.prompt, "hashtags")
	assert.Contains(t, gen.prompt, "Title: Old title")
	assert.Contains(t, gen.prompt, "Long body")
}

func TestClientTransformError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	_, err := NewClient(gen, Options{}).Transform(context.Background(), "t", "b")
	require.ErrorContains(t, err, "quota exceeded")
}

func TestBuildPromptTranslate(t *testing.T) {
	p := BuildPrompt(Options{Mode: ModeTranslate, Language: "Farsi", Instruction: "Keep names in English."}, "T", "B")
	assert.Contains(t, p, "Translate the following news article to Farsi.")
	assert.Contains(t, p, "Keep names in English.")
	assert.NotContains(t, p, "hashtags")
}
