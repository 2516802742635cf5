package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "TTN"

// envOverrides are read from TTN_* variables. Empty values leave the file
// configuration alone.
type envOverrides struct {
	DB        string `envconfig:"DB"`
	UserAgent string `envconfig:"USER_AGENT"`
	TestMode  bool   `envconfig:"TEST_MODE"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	Notifier            string `envconfig:"NOTIFIER"`
	MastodonBaseURL     string `envconfig:"MASTODON_BASE_URL"`
	MastodonAccessToken string `envconfig:"MASTODON_ACCESS_TOKEN"`
	TelegramBotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      string `envconfig:"TELEGRAM_CHAT_ID"`

	Blocklist        string `envconfig:"BLOCKLIST"`
	ClassifierURL    string `envconfig:"CLASSIFIER_URL"`
	ClassifierAPIKey string `envconfig:"CLASSIFIER_API_KEY"`
	ChatGPTAPIKey    string `envconfig:"CHATGPT_API_KEY"`
	ChatGPTModel     string `envconfig:"CHATGPT_MODEL"`
}

// loadEnvFile loads dir/.env without overriding variables already set.
func loadEnvFile(dir string) error {
	err := godotenv.Load(filepath.Join(dir, EnvFile))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", EnvFile, err)
}

func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setString(&c.DB, env.DB)
	setString(&c.UserAgent, env.UserAgent)
	if env.TestMode {
		c.TestMode = true
	}
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.Format, env.LogFormat)

	setString(&c.Notifier.Kind, env.Notifier)
	setString(&c.Notifier.Mastodon.BaseURL, env.MastodonBaseURL)
	setString(&c.Notifier.Mastodon.AccessToken, env.MastodonAccessToken)
	setString(&c.Notifier.Telegram.BotToken, env.TelegramBotToken)
	setString(&c.Notifier.Telegram.ChatID, env.TelegramChatID)

	setString(&c.Blocklist.Kind, env.Blocklist)
	setString(&c.Blocklist.HTTP.Endpoint, env.ClassifierURL)
	setString(&c.Blocklist.HTTP.APIKey, env.ClassifierAPIKey)
	setString(&c.Blocklist.ChatGPT.APIKey, env.ChatGPTAPIKey)
	setString(&c.Blocklist.ChatGPT.Model, env.ChatGPTModel)
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
