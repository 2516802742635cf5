package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// Evaluator applies the block and keyword policies to extracted plaintext.
type Evaluator struct {
	words     Matchwords
	marker    string
	blocklist ports.Blocklist
	logger    zerolog.Logger
}

var _ ports.Evaluator = (*Evaluator)(nil)

// NewEvaluator wires matchwords, the fetch identity marker and an optional
// block-list classifier. A nil blocklist never blocks.
func NewEvaluator(words Matchwords, marker string, blocklist ports.Blocklist, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		words:     words,
		marker:    marker,
		blocklist: blocklist,
		logger:    logger,
	}
}

// Evaluate returns the matching paragraphs of doc in document order.
// Block decisions apply to the whole article; keyword matches to single paragraphs.
func (e *Evaluator) Evaluate(ctx context.Context, article domain.Article, doc domain.Document) ([]string, error) {
	if doc.LooksBroken(e.marker) {
		e.logger.Warn().Str("url", article.URL).Msg("fetch identity found in plaintext, skipping matches")
		return nil, nil
	}

	lowered := strings.ToLower(doc.Plaintext)
	for _, word := range e.words.BlockWords {
		if strings.Contains(lowered, word) {
			e.logger.Debug().Str("url", article.URL).Str("word", word).Msg("article contains block word")
			return nil, nil
		}
	}

	if e.blocklist != nil {
		blocked, err := e.blocklist.Blocked(ctx, domain.Candidate{
			Outlet:    article.Outlet,
			Title:     article.Title,
			URL:       article.URL,
			Plaintext: doc.Plaintext,
		})
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", article.URL, err)
		}
		if blocked {
			e.logger.Debug().Str("url", article.URL).Msg("article blocked by classifier")
			return nil, nil
		}
	}

	var matching []string
	for _, paragraph := range strings.Split(doc.Plaintext, "\n") {
		if e.matches(paragraph) {
			matching = append(matching, paragraph)
		}
	}
	return matching, nil
}

func (e *Evaluator) matches(paragraph string) bool {
	lowered := strings.ToLower(paragraph)
	for _, word := range e.words.CaseInsensitive {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	for _, form := range e.words.CaseSensitive {
		if strings.Contains(paragraph, form) {
			return true
		}
	}
	return false
}
