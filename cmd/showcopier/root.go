package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag)
	opts := &copyFlags{verbose: true}

	rootCmd := &cobra.Command{
		Use:   "showcopier SHOW... -N COUNT",
		Short: "Copy player-compatible TV episodes to removable media",
		Long: "Copy episodes of the named shows that the configured player can decode.\n" +
			"Restrict a show to one season with the notation \"Friends/Season 01\".",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runCopy(cmd, ctx, args, opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit machine-readable JSON")

	flags := rootCmd.Flags()
	flags.IntVarP(&opts.count, "count", "N", 0, "Number of episodes to copy (required)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", true, "Print each episode and its verdict")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress per-episode output")
	flags.BoolVarP(&opts.random, "random", "r", false, "Random episode selection (not supported)")
	flags.BoolVarP(&opts.uniform, "uniformous", "u", false, "Equal episodes per show (not supported)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Resolve verdicts without copying")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))

	return rootCmd
}
