package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsRelay/internal/model"
)

var ErrNoFeeds = errors.New("no feeds configured")

type Config struct {
	TelegramBotToken    string `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN" required:"true"`
	TelegramChannelID   string `hcl:"telegram_channel_id" env:"TELEGRAM_CHANNEL_ID" required:"true"`
	TelegramAdminChatID int64  `hcl:"telegram_admin_chat_id" env:"TELEGRAM_ADMIN_CHAT_ID"`
	TelegramAPIEndpoint string `hcl:"telegram_api_endpoint" env:"TELEGRAM_API_ENDPOINT"`

	// Feeds entries are either a bare URL or "topic=url".
	Feeds          []string      `hcl:"feeds" env:"FEEDS" default:"https://rss.cbc.ca/lineup/canada.xml"`
	MaxEntries     int           `hcl:"max_entries" env:"MAX_ENTRIES"`
	FilterKeywords []string      `hcl:"filter_keywords" env:"FILTER_KEYWORDS"`
	FetchTimeout   time.Duration `hcl:"fetch_timeout" env:"FETCH_TIMEOUT" default:"10s"`
	ContentSource  string        `hcl:"content_source" env:"CONTENT_SOURCE" default:"page"`

	LedgerPath string `hcl:"ledger_path" env:"LEDGER_PATH" default:"published_articles.txt"`
	LedgerDSN  string `hcl:"ledger_dsn" env:"LEDGER_DSN"`
	RecordMode string `hcl:"record_mode" env:"RECORD_MODE" default:"after_send"`

	ImageDir      string        `hcl:"image_dir" env:"IMAGE_DIR" default:"images"`
	ImageMaxBytes int64         `hcl:"image_max_bytes" env:"IMAGE_MAX_BYTES" default:"10485760"`
	ImageTimeout  time.Duration `hcl:"image_timeout" env:"IMAGE_TIMEOUT" default:"10s"`
	SendImages    bool          `hcl:"send_images" env:"SEND_IMAGES" default:"true"`

	AIType         string        `hcl:"ai_type" env:"AI_TYPE" default:"gemini"`
	AIAPI          string        `hcl:"ai_api" env:"AI_API" default:"generateContent"`
	AIBaseURL      string        `hcl:"ai_base_url" env:"AI_BASE_URL"`
	AIKey          string        `hcl:"ai_key" env:"AI_KEY"`
	AIPrompt       string        `hcl:"ai_prompt" env:"AI_PROMPT"`
	AIModel        string        `hcl:"ai_model" env:"AI_MODEL" default:"gemini-1.5-flash-latest"`
	AITimeout      time.Duration `hcl:"ai_timeout" env:"AI_TIMEOUT" default:"1m"`
	AIMode         string        `hcl:"ai_mode" env:"AI_MODE" default:"summarize"`
	AIHashtags     bool          `hcl:"ai_hashtags" env:"AI_HASHTAGS" default:"true"`
	AICatchyTitle  bool          `hcl:"ai_catchy_title" env:"AI_CATCHY_TITLE"`
	TargetLanguage string        `hcl:"target_language" env:"TARGET_LANGUAGE" default:"Farsi"`

	TitleMarker    string `hcl:"title_marker" env:"TITLE_MARKER" default:"🔴 "`
	ReadMoreLabel  string `hcl:"read_more_label" env:"READ_MORE_LABEL" default:"بیشتر بخوانید"`
	PublishedLabel string `hcl:"published_label" env:"PUBLISHED_LABEL" default:"Published on"`

	PostDelay   time.Duration `hcl:"post_delay" env:"POST_DELAY" default:"2s"`
	Schedule    string        `hcl:"schedule" env:"SCHEDULE"`
	RunInterval time.Duration `hcl:"run_interval" env:"RUN_INTERVAL"`
	HealthAddr  string        `hcl:"health_addr" env:"HEALTH_ADDR" default:"127.0.0.1:8088"`
	LogLevel    string        `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
}

// DefaultFiles are read in order; later files override earlier ones and
// missing files are skipped.
var DefaultFiles = []string{"./config.hcl", "./config.local.hcl", "$HOME/.config/news-relay/config.hcl"}

// Load reads files (later ones override earlier ones) and NR_ prefixed
// environment variables, then validates the result.
func Load(files ...string) (Config, error) {
	var c Config
	loader := aconfig.LoaderFor(&c, aconfig.Config{
		EnvPrefix: "NR",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

func (c Config) Validate() error {
	if len(c.Sources()) == 0 {
		return ErrNoFeeds
	}
	if !lo.Contains([]string{"page", "feed"}, c.ContentSource) {
		return fmt.Errorf("content_source must be \"page\" or \"feed\", got %q", c.ContentSource)
	}
	if !lo.Contains([]string{"after_send", "before_extract"}, c.RecordMode) {
		return fmt.Errorf("record_mode must be \"after_send\" or \"before_extract\", got %q", c.RecordMode)
	}
	if !lo.Contains([]string{"gemini", "openai", "ollama"}, c.AIType) {
		return fmt.Errorf("unknown ai_type %q", c.AIType)
	}
	if !lo.Contains([]string{"translate", "summarize"}, c.AIMode) {
		return fmt.Errorf("ai_mode must be \"translate\" or \"summarize\", got %q", c.AIMode)
	}
	if (c.AIType == "gemini" || c.AIType == "openai") && c.AIKey == "" {
		return fmt.Errorf("ai_key is required when ai_type is %q", c.AIType)
	}
	if c.AIType == "ollama" && c.AIBaseURL == "" {
		return errors.New("ai_base_url is required when ai_type is \"ollama\"")
	}
	if c.ImageMaxBytes <= 0 {
		return fmt.Errorf("image_max_bytes must be positive, got %d", c.ImageMaxBytes)
	}
	return nil
}

// Sources parses Feeds into ordered sources, dropping blanks and duplicates.
func (c Config) Sources() []model.Source {
	sources := make([]model.Source, 0, len(c.Feeds))
	for _, raw := range c.Feeds {
		src, ok := parseFeed(raw)
		if !ok {
			continue
		}
		sources = append(sources, src)
	}
	return lo.UniqBy(sources, func(s model.Source) string { return s.FeedURL })
}

func parseFeed(raw string) (model.Source, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Source{}, false
	}

	topic, url, found := strings.Cut(raw, "=")
	// An "=" inside the query string of a bare URL is not a topic separator.
	if !found || strings.Contains(topic, "/") {
		return model.Source{FeedURL: raw}, true
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return model.Source{}, false
	}
	return model.Source{Topic: strings.TrimSpace(topic), FeedURL: url}, true
}
