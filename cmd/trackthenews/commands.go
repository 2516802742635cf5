package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfilter/track-the-news/internal/app"
	"github.com/jfilter/track-the-news/internal/config"
	"github.com/jfilter/track-the-news/internal/infrastructure/storage"
	"github.com/jfilter/track-the-news/internal/logging"
)

type runFlags struct {
	shard  int
	shards int
	every  time.Duration
	test   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.shard, "shard", 0, "Index of this worker when feeds are split across processes")
	cmd.Flags().IntVar(&f.shards, "shards", 1, "Number of workers feeds are split across")
	cmd.Flags().DurationVar(&f.every, "every", 0, "Repeat the pass on this interval instead of exiting")
	cmd.Flags().BoolVar(&f.test, "test", false, "Log notifications instead of posting them")
}

func configDir(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return config.DefaultDir
}

func runCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Check every feed once, or repeatedly with --every",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), configDir(args), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runPipeline(ctx context.Context, dir string, flags *runFlags) error {
	if flags.test {
		if err := os.Setenv("TTN_TEST_MODE", "true"); err != nil {
			return err
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	lists, err := config.LoadLists(cfg.Dir)
	if err != nil {
		return err
	}
	feeds, err := config.LoadFeeds(cfg.Dir)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Str("dir", cfg.Dir).Bool("test_mode", cfg.TestMode).Msg("running with configuration")

	application, err := app.New(ctx, cfg, lists, feeds, app.Options{Shard: flags.shard, Shards: flags.shards}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	if flags.every > 0 {
		return application.RunEvery(ctx, flags.every)
	}

	_, err = application.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("interrupted")
		return nil
	}
	return err
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup [dir]",
		Short: "Create any missing configuration files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := configDir(args)
			created, err := config.Scaffold(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintf(out, "Configuration in %s is complete.\n", dir)
				return nil
			}
			for _, path := range created {
				fmt.Fprintf(out, "created %s\n", path)
			}
			fmt.Fprintf(out, "Add words to %s and feeds to %s, then set your credentials in %s.\n",
				filepath.Join(dir, config.MatchlistFile),
				filepath.Join(dir, config.FeedsFile),
				filepath.Join(dir, config.ConfigFile))
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit uint64
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List the most recently recorded articles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// history only reads, so notifier credentials are irrelevant
			if err := os.Setenv("TTN_TEST_MODE", "true"); err != nil {
				return err
			}
			cfg, err := config.Load(configDir(args))
			if err != nil {
				return err
			}

			repo, err := storage.Open(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer repo.Close()

			total, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}
			records, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECORDED\tNOTIFIED\tID\tOUTLET\tTITLE\tURL")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\t%s\n",
					r.RecordedAt.Format(time.DateTime), r.Notified, r.NotificationID, r.Outlet, r.Title, r.URL)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d records\n", len(records), total)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 20, "Number of records to show")
	return cmd
}
