package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/canonical"
	"github.com/jfilter/track-the-news/internal/config"
	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/infrastructure/blocklist"
	"github.com/jfilter/track-the-news/internal/infrastructure/extractor"
	"github.com/jfilter/track-the-news/internal/infrastructure/feed"
	"github.com/jfilter/track-the-news/internal/infrastructure/mastodon"
	"github.com/jfilter/track-the-news/internal/infrastructure/notify"
	"github.com/jfilter/track-the-news/internal/infrastructure/render"
	"github.com/jfilter/track-the-news/internal/infrastructure/scheduler"
	"github.com/jfilter/track-the-news/internal/infrastructure/storage"
	"github.com/jfilter/track-the-news/internal/infrastructure/telegram"
	"github.com/jfilter/track-the-news/internal/matcher"
	"github.com/jfilter/track-the-news/internal/ports"
	"github.com/jfilter/track-the-news/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Options narrow what a process works on.
type Options struct {
	Shard  int
	Shards int
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	feeds      []domain.Feed
	repository *storage.SQLiteRepository
	pipeline   *usecase.Pipeline
	logger     zerolog.Logger
}

// New opens the store and builds the pipeline. The caller owns Close.
func New(ctx context.Context, cfg config.Config, lists config.Lists, feeds []domain.Feed, opts Options, logger zerolog.Logger) (*Application, error) {
	selected, err := usecase.SelectShard(feeds, opts.Shard, opts.Shards)
	if err != nil {
		return nil, err
	}

	words := matcher.NewMatchwords(lists.Matchwords, lists.MatchwordsCaseSensitive, lists.BlockWords)
	if words.Empty() {
		return nil, config.ErrNoMatchwords
	}

	renderer, err := render.New(cfg.Font, cfg.Color)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	repository, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	component := func(name string) zerolog.Logger {
		return logger.With().Str("component", name).Logger()
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:        feed.NewSource(client, cfg.UserAgent, component("feed")),
		Canonicalizer: canonical.New(client, cfg.UserAgent),
		Repository:    repository,
		Extractor:     extractor.NewReadability(client, cfg.UserAgent),
		Evaluator:     matcher.NewEvaluator(words, cfg.UserAgent, newBlocklist(cfg), component("matcher")),
		Threads:       usecase.NewThreadResolver(repository, cfg.ThreadWindow, time.Now),
		Renderer:      renderer,
		Notifier:      newNotifier(cfg, client, component("notifier")),
		Pacing:        cfg.Pacing,
		Logger:        component("pipeline"),
	})

	logger.Info().
		Str("dir", cfg.Dir).
		Int("feeds", len(selected)).
		Int("matchwords", len(words.CaseInsensitive)).
		Int("case_sensitive_forms", len(words.CaseSensitive)).
		Str("notifier", cfg.NotifierKind()).
		Msg("application ready")

	return &Application{
		cfg:        cfg,
		feeds:      selected,
		repository: repository,
		pipeline:   pipeline,
		logger:     logger,
	}, nil
}

func newNotifier(cfg config.Config, client *http.Client, logger zerolog.Logger) ports.Notifier {
	switch cfg.NotifierKind() {
	case config.NotifierMastodon:
		return mastodon.NewNotifier(mastodon.Config{
			BaseURL:     cfg.Notifier.Mastodon.BaseURL,
			AccessToken: cfg.Notifier.Mastodon.AccessToken,
			Visibility:  cfg.Notifier.Mastodon.Visibility,
		}, client, logger)
	case config.NotifierTelegram:
		tg := cfg.Notifier.Telegram
		return telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIBase, logger)
	default:
		return notify.NewDryRun(logger)
	}
}

func newBlocklist(cfg config.Config) ports.Blocklist {
	switch cfg.Blocklist.Kind {
	case config.BlocklistHTTP:
		return blocklist.NewClient(cfg.Blocklist.HTTP.Endpoint, cfg.Blocklist.HTTP.APIKey)
	case config.BlocklistChatGPT:
		gpt := cfg.Blocklist.ChatGPT
		return blocklist.NewChatGPTClassifier(blocklist.ChatGPTConfig{
			Endpoint:     gpt.Endpoint,
			Model:        gpt.Model,
			APIKey:       gpt.APIKey,
			SystemPrompt: gpt.SystemPrompt,
			MaxChars:     gpt.MaxChars,
		})
	default:
		return blocklist.None{}
	}
}

// Run performs a single pass over the selected feeds.
func (a *Application) Run(ctx context.Context) (usecase.Summary, error) {
	return a.pipeline.Run(ctx, a.feeds)
}

// RunEvery repeats passes every interval until ctx is cancelled.
func (a *Application) RunEvery(ctx context.Context, interval time.Duration) error {
	s := usecase.NewScheduler(scheduler.NewIntervalScheduler(interval), a.pipeline, a.feeds, a.logger)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.repository.Close()
}
