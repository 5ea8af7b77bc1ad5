package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Engine   EngineConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Paths    PathsConfig
	Database DatabaseConfig
}

// EngineConfig holds the tunables of the recognition/attendance core.
type EngineConfig struct {
	// ConfidenceThreshold is the minimum confidence (0-100) for an automatic
	// attendance record. Below it a recognition event is dropped.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// PredictionCutoff is the LBPH distance at and above which the classifier
	// is treated as having no opinion about a face.
	PredictionCutoff float64 `yaml:"prediction_cutoff"`
	// RequiredSamples is the face-crop quota collected per subject.
	RequiredSamples int `yaml:"required_samples"`
}

type DetectorConfig struct {
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"` // smallest face side in pixels
}

type CameraConfig struct {
	DeviceID int // V4L device index, defaults to 0
}

type PathsConfig struct {
	DatasetDir  string // labeled face crops, one sequence per subject
	TrainerDir  string // classifier artifact directory
	TrainerFile string // artifact filename inside TrainerDir
	CascadeFile string // Haar cascade XML for face detection
}

// ArtifactPath returns the full path of the classifier artifact.
func (p *PathsConfig) ArtifactPath() string {
	return filepath.Join(p.TrainerDir, p.TrainerFile)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MySQLDSN     string // MariaDB/MySQL DSN, used instead of URL when set
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDeviceID parses a camera device index; zero is a valid device.
func envDeviceID(key string) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n >= 0 {
		return n
	}
	return 0
}

// envString reads an environment variable with a fallback.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// defaults mirrors the layout of the embedded defaults.yaml.
type defaults struct {
	Engine   EngineConfig   `yaml:"engine"`
	Detector DetectorConfig `yaml:"detector"`
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// Embedded file, so this can only be a build-time mistake.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Engine: EngineConfig{
			ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", def.Engine.ConfidenceThreshold),
			PredictionCutoff:    def.Engine.PredictionCutoff,
			RequiredSamples:     envInt("REQUIRED_FACE_SAMPLES", def.Engine.RequiredSamples),
		},
		Detector: DetectorConfig{
			ScaleFactor:  envFloat("DETECTOR_SCALE_FACTOR", def.Detector.ScaleFactor),
			MinNeighbors: envInt("DETECTOR_MIN_NEIGHBORS", def.Detector.MinNeighbors),
			MinSize:      envInt("DETECTOR_MIN_SIZE", def.Detector.MinSize),
		},
		Camera: CameraConfig{
			DeviceID: envDeviceID("CAMERA_DEVICE"),
		},
		Paths: PathsConfig{
			DatasetDir:  envString("DATASET_DIR", "dataset"),
			TrainerDir:  envString("TRAINER_DIR", "trainer"),
			TrainerFile: envString("TRAINER_FILE", "trainer.yml"),
			CascadeFile: envString("CASCADE_FILE", "haarcascade_frontalface_default.xml"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MySQLDSN:     os.Getenv("MYSQL_DSN"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
	}
}
