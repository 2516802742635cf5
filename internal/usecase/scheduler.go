package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	feeds    []domain.Feed
	logger   zerolog.Logger
}

// NewScheduler returns a helper to start/stop recurring passes over feeds.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, feeds []domain.Feed, logger zerolog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, feeds: feeds, logger: logger}
}

// Start registers the pipeline with the provided scheduler. A failed pass
// is logged; the next tick runs regardless.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		summary, err := s.pipeline.Run(ctx, s.feeds)
		if err != nil {
			s.logger.Error().Err(err).Time("trigger", trigger).Msg("pass aborted")
			return
		}
		s.logger.Debug().Time("trigger", trigger).Int("notified", summary.Notified).Msg("scheduled pass finished")
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
