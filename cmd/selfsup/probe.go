package main

import (
	"context"
	"fmt"

	"github.com/dan-xie-2022/selfsupervised/internal/probe"
	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/types"
	"github.com/spf13/cobra"
)

var (
	probeDBPath     string
	probeEpochs     int
	probeBatchSize  int
	probeLearnRate  float64
	probeL2Penalty  float64
	probeEvalSplit  float64
	probeSeed       int64
	probeJSONOutput bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Train a linear probe over stored samples",
	Long: `Probe fits a logistic regression head on the labeled embeddings in
the store and reports held-out accuracy. The run is recorded in the store's
run history.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeDBPath, "db", defaultDBPath(), "Database path")
	probeCmd.Flags().IntVar(&probeEpochs, "epochs", 50, "Training epochs")
	probeCmd.Flags().IntVar(&probeBatchSize, "batch-size", 32, "Minibatch size")
	probeCmd.Flags().Float64Var(&probeLearnRate, "learn-rate", 0.1, "SGD learning rate")
	probeCmd.Flags().Float64Var(&probeL2Penalty, "l2-penalty", 1e-4, "L2 weight penalty")
	probeCmd.Flags().Float64Var(&probeEvalSplit, "eval-split", 0.2, "Held-out evaluation fraction")
	probeCmd.Flags().Int64Var(&probeSeed, "seed", 0, "Shuffle seed")
	probeCmd.Flags().BoolVar(&probeJSONOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := store.NewSQLiteStore(probeDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	samples, err := db.ListSamples(ctx, 0)
	if err != nil {
		return fmt.Errorf("list samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples in %s; ingest samples first", probeDBPath)
	}

	embeddings := make([][]float32, len(samples))
	labels := make([]string, len(samples))
	for i, s := range samples {
		embeddings[i] = s.Embedding
		labels[i] = s.Label
	}

	report, err := probe.Run(embeddings, labels, probe.Config{
		Epochs:    probeEpochs,
		BatchSize: probeBatchSize,
		LearnRate: probeLearnRate,
		L2Penalty: probeL2Penalty,
		EvalSplit: probeEvalSplit,
		Seed:      probeSeed,
	})
	if err != nil {
		return err
	}

	run, err := db.RecordRun(ctx, types.RunRecord{
		Kind:       types.RunKindProbe,
		BatchSize:  probeBatchSize,
		Dimensions: report.Dimensions,
		Loss:       report.TrainLoss,
		Accuracy:   report.Accuracy,
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if probeJSONOutput {
		return printJSON(cmd.OutOrStdout(), types.ProbeResult{
			Accuracy:   report.Accuracy,
			TrainLoss:  report.TrainLoss,
			Samples:    report.Samples,
			Classes:    report.Classes,
			Dimensions: report.Dimensions,
			Epochs:     report.Epochs,
			RunID:      run.ID,
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "SAMPLES\tCLASSES\tEPOCHS\tTRAIN LOSS\tACCURACY")
	fmt.Fprintf(w, "%d\t%d\t%d\t%.4f\t%.2f%%\n",
		report.Samples, report.Classes, report.Epochs,
		report.TrainLoss, report.Accuracy*100)
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "recorded run %s\n", run.ID)

	return nil
}
