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
	rootCmd := &cobra.Command{
		Use:   "indexer",
		Short: "Build keyword completion indexes from a table database",
		Long: `indexer reads the per-file tables written by the scanner, merges every
table with everything it imports and persists one index-<table> file per
table. Editors and the completer service query those files.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config file")
	rootCmd.PersistentFlags().String("db-dir", "", "table database directory (overrides config)")
	rootCmd.PersistentFlags().String("index-dir", "", "index output directory (overrides config)")

	indexCmd := &cobra.Command{
		Use:   "index [table]",
		Short: "Index one table, or every table in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIndex,
	}

	relinkCmd := &cobra.Command{
		Use:   "relink <table>",
		Short: "Rebuild a table's index, requeueing the tables it merged last time",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelink,
	}

	completeCmd := &cobra.Command{
		Use:   "complete <table> <prefix>",
		Short: "Print completion candidates for prefix from a table's index",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runComplete,
	}
	completeCmd.Flags().String("mode", "no_brackets", "variable hint mode: no_brackets|two_brackets|start_bracket|auto")
	completeCmd.Flags().Int("limit", 0, "maximum candidates (0 for all)")
	completeCmd.Flags().Bool("json", false, "print candidates as JSON")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Index the corpus, then rebuild tables on reindex requests from Kafka",
		Args:  cobra.NoArgs,
		RunE:  runListen,
	}
	listenCmd.Flags().Bool("skip-initial", false, "do not index the corpus before listening")

	rootCmd.AddCommand(indexCmd, relinkCmd, completeCmd, listenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
