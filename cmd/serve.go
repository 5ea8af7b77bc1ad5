package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/vision"
	"github.com/kozaktomas/roll-call/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Roll Call web server.
The server exposes the attendance API: user and class management,
recognition job control with live SSE events, day views, rosters,
manual replace-day edits and look-alike queries.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// initSampleIndex builds the in-memory HNSW index over stored face sample
// fingerprints. Failure is not fatal, look-alike queries fall back to the
// database scan.
func initSampleIndex(ctx context.Context, store database.Store) *database.SampleIndex {
	index := database.NewSampleIndex()

	fmt.Printf("Building in-memory HNSW index for face samples...\n")
	samples, err := store.ListFaceSamples(ctx)
	if err != nil {
		fmt.Printf("Warning: failed to load face samples: %v\n", err)
		fmt.Printf("Look-alike queries will use database scans (slower)\n")
		return index
	}
	if err := index.Build(samples); err != nil {
		fmt.Printf("Warning: failed to build HNSW index: %v\n", err)
		fmt.Printf("Look-alike queries will use database scans (slower)\n")
		return index
	}

	fmt.Printf("HNSW index built with %d face samples (in-memory only)\n", index.Count())
	return index
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	index := initSampleIndex(cmd.Context(), store)

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

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, store, recorder, loop, index)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		loop.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Roll Call API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
