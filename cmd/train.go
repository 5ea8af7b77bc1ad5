package cmd

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/samples"
	"github.com/kozaktomas/roll-call/internal/training"
	"github.com/kozaktomas/roll-call/internal/vision"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the classifier from the sample dataset",
	Long: `Scan every face sample in the dataset directory and rebuild the
classifier artifact. Unreadable samples are skipped with a warning.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	dataset := samples.NewStore(cfg.Paths.DatasetDir)
	pipeline := training.New(dataset, vision.NewLBPH(), cfg.Paths.ArtifactPath())

	var bar *progressbar.ProgressBar
	pipeline.OnProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Loading samples"),
				progressbar.OptionShowCount(),
			)
		}
		_ = bar.Set(done)
	})

	if err := pipeline.Run(cmd.Context()); err != nil {
		if errors.Is(err, training.ErrNoTrainingData) {
			return fmt.Errorf("no face samples found in %s, run capture first", cfg.Paths.DatasetDir)
		}
		return err
	}

	fmt.Printf("\nClassifier written to %s\n", cfg.Paths.ArtifactPath())
	return nil
}
