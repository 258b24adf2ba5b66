package cmd

import (
	"context"
	"fmt"

	"github.com/classmark/classmark/internal/postgres"
	"github.com/classmark/classmark/internal/recognizer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the recognition model from enrollment samples",
	Long: `Embeds every stored face sample and builds the recognition index.
Only students present at training time are covered by the model;
enroll or remove students and retrain to change the coverage.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	samplesByRoll, err := a.registry.Samples().All(ctx)
	if err != nil {
		return fmt.Errorf("loading enrollment samples: %w", err)
	}

	totalSamples := 0
	for rollNo, samples := range samplesByRoll {
		totalSamples += len(samples)
		if len(samples) < a.cfg.Recognition.MinSamplesWarn {
			fmt.Printf("Warning: %s has only %d samples (%d recommended)\n",
				rollNo, len(samples), a.cfg.Recognition.RequiredSamples)
		}
	}
	fmt.Printf("Training on %d samples from %d students\n", totalSamples, len(samplesByRoll))

	bar := progressbar.NewOptions(totalSamples,
		progressbar.OptionSetDescription("Embedding samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	trainer := &recognizer.HNSWTrainer{
		Threshold: a.cfg.Recognition.ConfidenceThreshold,
		OnSample: func(string) {
			_ = bar.Add(1)
		},
	}

	model, err := trainer.Train(ctx, samplesByRoll)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}
	if err := model.Save(a.cfg.ModelPath()); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	fmt.Printf("\nModel saved to %s, covering %d students\n",
		a.cfg.ModelPath(), len(model.Coverage()))

	// Refresh the pgvector index too when PostgreSQL is the configured
	// backend; sessions predict against it instead of the gob model.
	if a.pool != nil {
		if err := indexPostgresSamples(ctx, a, samplesByRoll); err != nil {
			return err
		}
	}
	return nil
}

func indexPostgresSamples(ctx context.Context, a *app, samplesByRoll map[string][][]byte) error {
	fmt.Println("Indexing embeddings into PostgreSQL...")
	matcher := postgres.NewMatcher(a.pool, a.cfg.Recognition.ConfidenceThreshold)
	indexed, err := matcher.IndexSamples(ctx, samplesByRoll)
	if err != nil {
		return fmt.Errorf("indexing embeddings: %w", err)
	}
	fmt.Printf("Indexed %d embeddings\n", indexed)
	return nil
}
