package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &runFlags{}
	root := &cobra.Command{
		Use:   "trackthenews [dir]",
		Short: "trackthenews: keyword alerts for news feeds",
		Long: "Follows RSS feeds, reads every new article and posts the ones whose text " +
			"matches your word lists. Configuration lives in dir (default ./ttnconfig).",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), configDir(args), flags)
		},
	}
	flags.register(root)

	root.AddCommand(
		runCmd(),
		setupCmd(),
		historyCmd(),
	)
	return root
}
