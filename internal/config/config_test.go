package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/newsRelay/internal/model"
)

func writeHCL(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := writeHCL(t, `
telegram_bot_token = "file-token"
telegram_channel_id = "@news"
ai_key = "secret"
feeds = ["canada=https://rss.cbc.ca/lineup/canada.xml", "https://rss.cbc.ca/lineup/world.xml"]
post_delay = "5s"
max_entries = 5
`)
	t.Setenv("NR_TELEGRAM_BOT_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.TelegramBotToken)
	assert.Equal(t, "@news", cfg.TelegramChannelID)
	assert.Equal(t, 5*time.Second, cfg.PostDelay)
	assert.Equal(t, 5, cfg.MaxEntries)
	assert.Equal(t, "gemini", cfg.AIType)
	assert.Equal(t, int64(10<<20), cfg.ImageMaxBytes)
	assert.Equal(t, "after_send", cfg.RecordMode)
	assert.Equal(t, "Published on", cfg.PublishedLabel)
	assert.True(t, cfg.SendImages)
	assert.Equal(t, []model.Source{
		{Topic: "canada", FeedURL: "https://rss.cbc.ca/lineup/canada.xml"},
		{FeedURL: "https://rss.cbc.ca/lineup/world.xml"},
	}, cfg.Sources())
}

func TestLoadRequiresToken(t *testing.T) {
	path := writeHCL(t, `
telegram_channel_id = "@news"
ai_key = "secret"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Feeds:         []string{"https://example.com/rss"},
		ContentSource: "page",
		RecordMode:    "after_send",
		AIType:        "gemini",
		AIMode:        "translate",
		AIKey:         "k",
		ImageMaxBytes: 1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no feeds", func(c *Config) { c.Feeds = []string{"  "} }},
		{"bad content source", func(c *Config) { c.ContentSource = "both" }},
		{"bad record mode", func(c *Config) { c.RecordMode = "never" }},
		{"bad ai type", func(c *Config) { c.AIType = "bard" }},
		{"bad ai mode", func(c *Config) { c.AIMode = "rewrite" }},
		{"missing key", func(c *Config) { c.AIKey = "" }},
		{"ollama without url", func(c *Config) { c.AIType = "ollama"; c.AIKey = "" }},
		{"zero image cap", func(c *Config) { c.ImageMaxBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}

	c := valid
	c.Feeds = nil
	require.ErrorIs(t, c.Validate(), ErrNoFeeds)
}

func TestSources(t *testing.T) {
	c := Config{Feeds: []string{
		"",
		"world = https://example.com/world.xml",
		"https://example.com/feed?format=rss",
		"https://example.com/feed?format=rss",
		"empty=",
	}}

	assert.Equal(t, []model.Source{
		{Topic: "world", FeedURL: "https://example.com/world.xml"},
		{FeedURL: "https://example.com/feed?format=rss"},
	}, c.Sources())
}
