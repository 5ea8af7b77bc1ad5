package config

import "testing"

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Engine.ConfidenceThreshold != 20 {
		t.Errorf("expected default confidence threshold 20, got %v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.PredictionCutoff != 100 {
		t.Errorf("expected default prediction cutoff 100, got %v", cfg.Engine.PredictionCutoff)
	}
	if cfg.Engine.RequiredSamples != 30 {
		t.Errorf("expected default sample quota 30, got %d", cfg.Engine.RequiredSamples)
	}
	if cfg.Detector.ScaleFactor != 1.3 {
		t.Errorf("expected default scale factor 1.3, got %v", cfg.Detector.ScaleFactor)
	}
	if cfg.Detector.MinNeighbors != 5 {
		t.Errorf("expected default min neighbors 5, got %d", cfg.Detector.MinNeighbors)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "50")
	t.Setenv("REQUIRED_FACE_SAMPLES", "100")
	t.Setenv("DATASET_DIR", "/var/lib/roll-call/dataset")
	t.Setenv("CAMERA_DEVICE", "2")

	cfg := Load()

	if cfg.Engine.ConfidenceThreshold != 50 {
		t.Errorf("expected confidence threshold 50, got %v", cfg.Engine.ConfidenceThreshold)
	}
	if cfg.Engine.RequiredSamples != 100 {
		t.Errorf("expected sample quota 100, got %d", cfg.Engine.RequiredSamples)
	}
	if cfg.Paths.DatasetDir != "/var/lib/roll-call/dataset" {
		t.Errorf("unexpected dataset dir %q", cfg.Paths.DatasetDir)
	}
	if cfg.Camera.DeviceID != 2 {
		t.Errorf("expected camera device 2, got %d", cfg.Camera.DeviceID)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("REQUIRED_FACE_SAMPLES", "not-a-number")
	t.Setenv("CONFIDENCE_THRESHOLD", "-3")

	cfg := Load()

	if cfg.Engine.RequiredSamples != 30 {
		t.Errorf("expected fallback sample quota 30, got %d", cfg.Engine.RequiredSamples)
	}
	if cfg.Engine.ConfidenceThreshold != 20 {
		t.Errorf("expected fallback confidence threshold 20, got %v", cfg.Engine.ConfidenceThreshold)
	}
}

func TestArtifactPath(t *testing.T) {
	p := PathsConfig{TrainerDir: "trainer", TrainerFile: "trainer.yml"}
	if got := p.ArtifactPath(); got != "trainer/trainer.yml" {
		t.Errorf("unexpected artifact path %q", got)
	}
}
