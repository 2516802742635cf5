package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// MaxImages caps how many matching paragraphs are rendered per notification.
const MaxImages = 4

// ErrMissingDependency is returned by Run when a required port is not wired.
var ErrMissingDependency = errors.New("pipeline: missing dependency")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source        ports.FeedSource
	Canonicalizer ports.Canonicalizer
	Repository    ports.ArticleRepository
	Extractor     ports.Extractor
	Evaluator     ports.Evaluator
	Threads       *ThreadResolver
	Renderer      ports.Renderer
	Notifier      ports.Notifier
	// Pacing is the pause after each record write. Zero disables it.
	Pacing time.Duration
	Clock  func() time.Time
	Logger zerolog.Logger
}

// Pipeline implements one fetch, dedup, match, notify and persist pass.
type Pipeline struct {
	source        ports.FeedSource
	canonicalizer ports.Canonicalizer
	repository    ports.ArticleRepository
	extractor     ports.Extractor
	evaluator     ports.Evaluator
	threads       *ThreadResolver
	renderer      ports.Renderer
	notifier      ports.Notifier
	limiter       *rate.Limiter
	clock         func() time.Time
	logger        zerolog.Logger
}

// Summary counts what happened during one pass.
type Summary struct {
	Feeds       int
	FeedsFailed int
	Entries     int
	Duplicates  int
	Seen        int
	Checked     int
	Matched     int
	Notified    int
	Recorded    int
	Conflicts   int
	Failed      int
}

// MarshalZerologObject lets a summary be embedded into a log event.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("feeds", s.Feeds).
		Int("feeds_failed", s.FeedsFailed).
		Int("entries", s.Entries).
		Int("duplicates", s.Duplicates).
		Int("seen", s.Seen).
		Int("checked", s.Checked).
		Int("matched", s.Matched).
		Int("notified", s.Notified).
		Int("recorded", s.Recorded).
		Int("conflicts", s.Conflicts).
		Int("failed", s.Failed)
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	limit := rate.Inf
	if deps.Pacing > 0 {
		limit = rate.Every(deps.Pacing)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	threads := deps.Threads
	if threads == nil && deps.Repository != nil {
		threads = NewThreadResolver(deps.Repository, DefaultThreadWindow, clock)
	}
	return &Pipeline{
		source:        deps.Source,
		canonicalizer: deps.Canonicalizer,
		repository:    deps.Repository,
		extractor:     deps.Extractor,
		evaluator:     deps.Evaluator,
		threads:       threads,
		renderer:      deps.Renderer,
		notifier:      deps.Notifier,
		limiter:       rate.NewLimiter(limit, 1),
		clock:         clock,
		logger:        deps.Logger,
	}
}

func (p *Pipeline) validate() error {
	switch {
	case p.source == nil:
		return fmt.Errorf("%w: feed source", ErrMissingDependency)
	case p.canonicalizer == nil:
		return fmt.Errorf("%w: canonicalizer", ErrMissingDependency)
	case p.repository == nil:
		return fmt.Errorf("%w: repository", ErrMissingDependency)
	case p.extractor == nil:
		return fmt.Errorf("%w: extractor", ErrMissingDependency)
	case p.evaluator == nil:
		return fmt.Errorf("%w: evaluator", ErrMissingDependency)
	case p.notifier == nil:
		return fmt.Errorf("%w: notifier", ErrMissingDependency)
	}
	return nil
}

// Run processes feeds one after another. Failures of a feed or an article
// are logged and counted; only a cancelled context ends the pass early.
// Links are de-duplicated within each feed; a copy in a later feed goes
// through the seen check instead.
func (p *Pipeline) Run(ctx context.Context, feeds []domain.Feed) (Summary, error) {
	var summary Summary
	if err := p.validate(); err != nil {
		return summary, err
	}

	logger := p.logger.With().Str("run_id", uuid.NewString()).Logger()
	logger.Info().Int("feeds", len(feeds)).Msg("pass started")

	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Feeds++

		feedLogger := logger.With().Str("outlet", feed.Outlet).Logger()
		entries, err := p.source.Entries(ctx, feed)
		if err != nil {
			feedLogger.Error().Err(err).Str("feed", feed.URL).Msg("feed failed")
			summary.FeedsFailed++
			continue
		}
		summary.Entries += len(entries)

		resolved := make(map[string]struct{}, len(entries))
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if err := p.processEntry(ctx, feedLogger, feed, entry, resolved, &summary); err != nil {
				return summary, err
			}
		}
	}

	logger.Info().EmbedObject(summary).Msg("pass finished")
	return summary, nil
}

// processEntry handles one entry. It only returns an error when the pass
// must stop.
func (p *Pipeline) processEntry(ctx context.Context, logger zerolog.Logger, feed domain.Feed, entry domain.Entry, resolved map[string]struct{}, summary *Summary) error {
	url, err := p.canonicalizer.Canonicalize(ctx, entry.Link, feed.RedirectLinks, feed.DelicateURLs)
	if err != nil {
		logger.Warn().Err(err).Str("link", entry.Link).Msg("cannot resolve link")
		summary.Failed++
		return nil
	}
	if _, dup := resolved[url]; dup {
		summary.Duplicates++
		return nil
	}
	resolved[url] = struct{}{}

	articleLogger := logger.With().Str("url", url).Logger()

	seen, err := p.repository.HasSeen(ctx, url)
	if err != nil {
		articleLogger.Error().Err(err).Msg("dedup lookup failed")
		summary.Failed++
		return nil
	}
	if seen {
		summary.Seen++
		return nil
	}

	article := domain.NewArticle(feed, entry, url)
	articleLogger.Info().Str("title", article.Title).Msg("checking article")
	summary.Checked++

	doc, err := p.extractor.Extract(ctx, url)
	if err != nil {
		articleLogger.Warn().Err(err).Msg("extraction failed")
		summary.Failed++
		return nil
	}

	paragraphs, err := p.evaluator.Evaluate(ctx, article, doc)
	if err != nil {
		articleLogger.Warn().Err(err).Msg("evaluation failed")
		summary.Failed++
		return nil
	}
	article = article.WithParagraphs(paragraphs)

	if article.Matched() {
		summary.Matched++
		articleLogger.Info().Int("paragraphs", len(article.Paragraphs)).Msg("got one")

		article, err = p.notify(ctx, articleLogger, article)
		if err != nil {
			articleLogger.Error().Err(err).Msg("notification failed")
			summary.Failed++
			return nil
		}
		summary.Notified++
	}

	recordCtx := ctx
	if article.Notified {
		// a sent notification must be recorded even when the pass is cancelled
		recordCtx = context.WithoutCancel(ctx)
	}
	inserted, err := p.repository.Record(recordCtx, article.Record(p.clock()))
	switch {
	case err != nil:
		articleLogger.Error().Err(err).Msg("record failed")
		summary.Failed++
	case !inserted:
		articleLogger.Debug().Msg("already recorded")
		summary.Conflicts++
	default:
		summary.Recorded++
	}

	if err := p.limiter.Wait(ctx); err != nil {
		articleLogger.Warn().Err(err).Msg("pacing interrupted")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("pacing: %w", err)
	}
	return nil
}

func (p *Pipeline) notify(ctx context.Context, logger zerolog.Logger, article domain.Article) (domain.Article, error) {
	var thread domain.Thread
	if p.threads != nil {
		var err error
		thread, err = p.threads.Resolve(ctx, article)
		if err != nil {
			return article, err
		}
	}
	if !thread.Standalone() {
		logger.Debug().Str("reply_to", thread.ReplyTo).Msg("continuing thread")
	}

	id, err := p.notifier.Notify(ctx, domain.Notification{
		Text:    article.Status(),
		Images:  p.render(logger, article.Paragraphs),
		ReplyTo: thread.ReplyTo,
	})
	if err != nil {
		return article, err
	}
	return article.WithNotification(id), nil
}

func (p *Pipeline) render(logger zerolog.Logger, paragraphs []string) []image.Image {
	if p.renderer == nil {
		return nil
	}
	if len(paragraphs) > MaxImages {
		paragraphs = paragraphs[:MaxImages]
	}
	square := len(paragraphs) == 1

	images := make([]image.Image, 0, len(paragraphs))
	for i, paragraph := range paragraphs {
		img, err := p.renderer.Render(paragraph, square)
		if err != nil {
			logger.Warn().Err(err).Int("paragraph", i).Msg("render failed")
			continue
		}
		images = append(images, img)
	}
	return images
}
