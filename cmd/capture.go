package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/capture"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/samples"
	"github.com/kozaktomas/roll-call/internal/training"
	"github.com/kozaktomas/roll-call/internal/vision"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Collect face samples for a subject",
	Long: `Collect the configured quota of face samples for an existing subject
from the camera and retrain the classifier afterwards. A partially
failed run keeps its samples; rerunning continues the sequence.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int64("subject", 0, "Subject id to capture samples for (required)")
	_ = captureCmd.MarkFlagRequired("subject")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	subjectID := mustGetInt64(cmd, "subject")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return captureSamples(cmd.Context(), cfg, store, subjectID)
}

// captureSamples runs the sample acquisition pipeline for one subject,
// shared by the capture and register commands.
func captureSamples(ctx context.Context, cfg *config.Config, store database.Store, subjectID int64) error {
	user, err := store.GetUser(ctx, subjectID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return fmt.Errorf("subject %d does not exist", subjectID)
		}
		return fmt.Errorf("failed to load subject %d: %w", subjectID, err)
	}

	camera, err := vision.OpenCamera(cfg.Camera.DeviceID)
	if err != nil {
		return err
	}
	defer camera.Close()

	detector, err := vision.NewCascadeDetector(cfg.Paths.CascadeFile, cfg.Detector)
	if err != nil {
		return err
	}
	defer detector.Close()

	dataset := samples.NewStore(cfg.Paths.DatasetDir)
	trainer := training.New(dataset, vision.NewLBPH(), cfg.Paths.ArtifactPath())

	pipeline := capture.New(camera, detector, dataset, store, trainer, cfg.Engine.RequiredSamples)

	fmt.Printf("Capturing %d face samples for %s (subject %d), look at the camera...\n",
		cfg.Engine.RequiredSamples, user.FullName, user.ID)
	bar := progressbar.NewOptions(cfg.Engine.RequiredSamples,
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
	pipeline.OnProgress(func(captured, quota int) {
		_ = bar.Set(captured)
	})

	// Ctrl-C aborts the capture but still triggers training.
	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, runErr := pipeline.Run(runCtx, subjectID)
	fmt.Println()
	fmt.Printf("Captured %d of %d samples\n", res.Captured, res.Quota)

	if res.TrainingErr != nil {
		if errors.Is(res.TrainingErr, training.ErrNoTrainingData) {
			fmt.Println("No samples in the dataset yet, classifier left unchanged")
		} else {
			fmt.Printf("Warning: training failed: %v\n", res.TrainingErr)
		}
	} else {
		fmt.Printf("Classifier retrained to %s\n", cfg.Paths.ArtifactPath())
	}

	return runErr
}
