package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dan-xie-2022/selfsupervised/internal/embedding"
	"github.com/dan-xie-2022/selfsupervised/internal/store"
	"github.com/dan-xie-2022/selfsupervised/internal/types"
	"github.com/spf13/cobra"
)

var (
	embedModel      string
	embedDimensions int
	embedLabel      string
	embedDBPath     string
	embedJSONOutput bool
)

var embedCmd = &cobra.Command{
	Use:   "embed [text...]",
	Short: "Embed texts with the configured provider",
	Long: `Embed sends the given texts to the embedding provider and prints
the resulting vectors. With --label the embedded texts are also stored as
labeled samples for later probe runs. Requires OPENAI_API_KEY.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&embedModel, "model", "text-embedding-3-small", "Embedding model")
	embedCmd.Flags().IntVar(&embedDimensions, "dimensions", 0,
		"Requested embedding dimensions (0 uses the model default)")
	embedCmd.Flags().StringVar(&embedLabel, "label", "", "Store the embedded texts as samples under this label")
	embedCmd.Flags().StringVar(&embedDBPath, "db", defaultDBPath(), "Path to the SQLite database")
	embedCmd.Flags().BoolVar(&embedJSONOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	embedder := embedding.NewOpenAI(apiKey, embedModel, embedDimensions)

	vectors, err := embedder.EmbedBatch(context.Background(), args)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	stored := 0
	if embedLabel != "" {
		db, err := store.NewSQLiteStore(embedDBPath)
		if err != nil {
			return fmt.Errorf("opening store at %s: %w", embedDBPath, err)
		}
		defer db.Close()

		samples := make([]types.Sample, len(vectors))
		for i, vec := range vectors {
			samples[i] = types.Sample{
				Label:      embedLabel,
				Dimensions: len(vec),
				Embedding:  vec,
			}
		}
		stored, err = db.AddSamples(context.Background(), samples)
		if err != nil {
			return fmt.Errorf("storing samples: %w", err)
		}
	}

	if embedJSONOutput {
		items := make([]map[string]any, len(args))
		for i, text := range args {
			items[i] = map[string]any{
				"text":      text,
				"embedding": vectors[i],
			}
		}
		out := map[string]any{
			"model":      embedder.ModelName(),
			"embeddings": items,
		}
		if embedLabel != "" {
			out["label"] = embedLabel
			out["stored"] = stored
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "TEXT\tDIMENSIONS\tPREVIEW")
	for i, text := range args {
		preview := ""
		for j, v := range vectors[i] {
			if j == 4 {
				preview += "..."
				break
			}
			preview += fmt.Sprintf("%.4f ", v)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", text, len(vectors[i]), preview)
	}
	w.Flush()

	if embedLabel != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nstored %d samples with label %q\n", stored, embedLabel)
	}

	return nil
}
