package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/vision"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run the recognition loop and record attendance",
	Long: `Run the continuous recognition loop against the camera for one class.
Every recognized enrolled subject is recorded as present once per day.
Stop with Ctrl-C.`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Int64("class", 0, "Class id to record attendance for (required)")
	_ = recognizeCmd.MarkFlagRequired("class")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	classID := mustGetInt64(cmd, "class")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	class, err := store.GetClass(cmd.Context(), classID)
	if err != nil {
		if errors.Is(err, database.ErrClassNotFound) {
			return fmt.Errorf("class %d does not exist", classID)
		}
		return fmt.Errorf("failed to load class %d: %w", classID, err)
	}

	detector, err := vision.NewCascadeDetector(cfg.Paths.CascadeFile, cfg.Detector)
	if err != nil {
		return err
	}
	defer detector.Close()

	openCamera := func() (vision.FrameSource, error) {
		return vision.OpenCamera(cfg.Camera.DeviceID)
	}
	loop := recognition.New(openCamera, detector, vision.NewLBPH(),
		cfg.Paths.ArtifactPath(), cfg.Engine.PredictionCutoff)
	recorder := attendance.NewRecorder(store, cfg.Engine.ConfidenceThreshold)

	if err := loop.Start(classID); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Recognizing for %s (class %d), press Ctrl-C to stop\n", class.Name, class.ID)

	var recognized, recorded int
	for {
		select {
		case <-ctx.Done():
			loop.Stop()
			fmt.Printf("\nStopped: %d recognitions, %d subjects recorded\n", recognized, recorded)
			return nil

		case ev := <-loop.Events():
			switch ev.Kind {
			case recognition.Recognized:
				recognized++
				outcome, err := recorder.Record(ctx, ev.ClassID, ev.SubjectID, ev.Confidence)
				if err != nil {
					fmt.Printf("Warning: could not record subject %d: %v\n", ev.SubjectID, err)
					continue
				}

				switch outcome {
				case attendance.Recorded:
					recorded++
					name := fmt.Sprintf("subject %d", ev.SubjectID)
					if u, err := store.GetUser(ctx, ev.SubjectID); err == nil {
						name = u.FullName
					}
					fmt.Printf("Recorded %s as present (confidence %.0f)\n", name, ev.Confidence)
				case attendance.NotEnrolled:
					fmt.Printf("Ignoring subject %d, not enrolled in class %d\n", ev.SubjectID, classID)
				}

			case recognition.Failed:
				fmt.Printf("\nCamera failed: %v\n", ev.Err)
				loop.Stop()
				fmt.Printf("Stopped: %d recognitions, %d subjects recorded\n", recognized, recorded)
				return ev.Err
			}
		}
	}
}
