package main

import (
	"context"
	"fmt"

	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/types"
	"github.com/spf13/cobra"
)

var (
	runsDBPath     string
	runsLimit      int
	runsJSONOutput bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded score and probe runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsDBPath, "db", defaultDBPath(), "Database path")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	runsCmd.Flags().BoolVar(&runsJSONOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := store.NewSQLiteStore(runsDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if runsJSONOutput {
		return printJSON(cmd.OutOrStdout(), types.RunsResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tKIND\tBATCH\tDIM\tLOSS\tACCURACY\tCREATED")
	for _, run := range runs {
		accuracy := "-"
		if run.Kind == types.RunKindProbe {
			accuracy = fmt.Sprintf("%.2f%%", run.Accuracy*100)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.BatchSize,
			run.Dimensions,
			run.Loss,
			accuracy,
			run.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	return nil
}
