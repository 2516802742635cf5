package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is where configuration lives unless a directory is given.
	DefaultDir = "ttnconfig"

	ConfigFile                 = "config.yaml"
	MatchlistFile              = "matchlist.txt"
	MatchlistCaseSensitiveFile = "matchlist_case_sensitive.txt"
	BlocklistFile              = "blocklist.txt"
	FeedsFile                  = "rssfeeds.json"
	EnvFile                    = ".env"

	defaultDB           = "trackthenews.db"
	defaultUserAgent    = "trackthenews (+https://github.com/jfilter/track-the-news)"
	defaultColor        = "#F5F5F5"
	defaultFont         = "NotoSerif-Regular.ttf"
	defaultHTTPTimeout  = 30 * time.Second
	defaultPacing       = time.Second
	defaultThreadWindow = 48 * time.Hour
)

// Notifier kinds.
const (
	NotifierMastodon = "mastodon"
	NotifierTelegram = "telegram"
	NotifierDryRun   = "dry-run"
)

// Block-list classifier kinds.
const (
	BlocklistNone    = "none"
	BlocklistHTTP    = "http"
	BlocklistChatGPT = "chatgpt"
)

var (
	// ErrNoMatchwords means neither matchlist holds a word.
	ErrNoMatchwords = errors.New("no matchwords configured")
	// ErrNoFeeds means the feed list is missing, empty or unparsable.
	ErrNoFeeds = errors.New("no feeds configured")
	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Config holds high-level settings required across the application.
type Config struct {
	Dir string `yaml:"-"`

	DB           string          `yaml:"db"`
	UserAgent    string          `yaml:"user-agent"`
	Color        string          `yaml:"color"`
	Font         string          `yaml:"font"`
	TestMode     bool            `yaml:"test_mode"`
	HTTPTimeout  time.Duration   `yaml:"http_timeout"`
	Pacing       time.Duration   `yaml:"pacing"`
	ThreadWindow time.Duration   `yaml:"thread_window"`
	Logging      LoggingConfig   `yaml:"logging"`
	Notifier     NotifierConfig  `yaml:"notifier"`
	Blocklist    BlocklistConfig `yaml:"blocklist"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifierConfig picks the notification transport.
type NotifierConfig struct {
	Kind     string         `yaml:"kind"`
	Mastodon MastodonConfig `yaml:"mastodon"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// MastodonConfig is the account the bot posts as.
type MastodonConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	AccessToken string `yaml:"accessToken"`
	Visibility  string `yaml:"visibility"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// BlocklistConfig picks the optional article classifier.
type BlocklistConfig struct {
	Kind    string           `yaml:"kind"`
	HTTP    ClassifierConfig `yaml:"http"`
	ChatGPT ChatGPTConfig    `yaml:"chatgpt"`
}

// ClassifierConfig points at an HTTP classification service.
type ClassifierConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxChars     int    `yaml:"maxChars"`
}

// Load reads dir/config.yaml (if present) over the defaults, applies .env
// and TTN_* environment overrides, resolves relative paths against dir and
// validates the result.
func Load(dir string) (Config, error) {
	if dir == "" {
		dir = DefaultDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config dir: %w", err)
	}

	cfg := defaultConfig()
	cfg.Dir = abs

	raw, err := os.ReadFile(filepath.Join(abs, ConfigFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read %s: %w", ConfigFile, err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", ConfigFile, err)
		}
	}

	if err := loadEnvFile(abs); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	cfg.DB = cfg.resolve(cfg.DB)
	cfg.Font = cfg.resolve(cfg.Font)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) resolve(path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || strings.HasPrefix(path, "file:") {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("%w: user-agent is required", ErrInvalid)
	}
	if strings.TrimSpace(c.DB) == "" {
		return fmt.Errorf("%w: db is required", ErrInvalid)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalid)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("%w: pacing must not be negative", ErrInvalid)
	}
	if c.ThreadWindow <= 0 {
		return fmt.Errorf("%w: thread_window must be positive", ErrInvalid)
	}

	switch c.NotifierKind() {
	case NotifierDryRun:
	case NotifierMastodon:
		if c.Notifier.Mastodon.BaseURL == "" || c.Notifier.Mastodon.AccessToken == "" {
			return fmt.Errorf("%w: mastodon notifier needs baseUrl and accessToken", ErrInvalid)
		}
	case NotifierTelegram:
		if c.Notifier.Telegram.BotToken == "" || c.Notifier.Telegram.ChatID == "" {
			return fmt.Errorf("%w: telegram notifier needs botToken and chatId", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown notifier kind %q", ErrInvalid, c.Notifier.Kind)
	}

	switch c.Blocklist.Kind {
	case "", BlocklistNone:
	case BlocklistHTTP:
		if c.Blocklist.HTTP.Endpoint == "" {
			return fmt.Errorf("%w: http blocklist needs an endpoint", ErrInvalid)
		}
	case BlocklistChatGPT:
		if c.Blocklist.ChatGPT.APIKey == "" {
			return fmt.Errorf("%w: chatgpt blocklist needs an apiKey", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown blocklist kind %q", ErrInvalid, c.Blocklist.Kind)
	}
	return nil
}

// NotifierKind is the transport actually used; test mode always dry-runs.
func (c Config) NotifierKind() string {
	if c.TestMode {
		return NotifierDryRun
	}
	return c.Notifier.Kind
}

func defaultConfig() Config {
	return Config{
		DB:           defaultDB,
		UserAgent:    defaultUserAgent,
		Color:        defaultColor,
		Font:         defaultFont,
		HTTPTimeout:  defaultHTTPTimeout,
		Pacing:       defaultPacing,
		ThreadWindow: defaultThreadWindow,
		Logging:      LoggingConfig{Level: "info", Format: "console"},
		Notifier: NotifierConfig{
			Kind:     NotifierMastodon,
			Mastodon: MastodonConfig{Visibility: "public"},
		},
		Blocklist: BlocklistConfig{
			Kind: BlocklistNone,
			ChatGPT: ChatGPTConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
		},
	}
}
