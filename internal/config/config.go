package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Analyzer backends selectable through ANALYZER
const (
	AnalyzerONNX        = "onnx"
	AnalyzerRekognition = "rekognition"
	AnalyzerRemote      = "remote"
	AnalyzerMock        = "mock"
)

type Config struct {
	// Server
	Port           int    `envconfig:"PORT" default:"18081"`
	Environment    string `envconfig:"ENV" default:"development"`
	MaxUploadBytes int    `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`

	// Inference
	InferenceBackend string `envconfig:"INFERENCE_BACKEND" default:"auto"`
	Analyzer         string `envconfig:"ANALYZER" default:"onnx"`

	// ONNX models
	ModelDir          string  `envconfig:"MODEL_DIR" default:"./models/buffalo_l"`
	DetectorModel     string  `envconfig:"DETECTOR_MODEL" default:"det_10g.onnx"`
	RecognizerModel   string  `envconfig:"RECOGNIZER_MODEL" default:"w600k_r50.onnx"`
	ONNXRuntimeLib    string  `envconfig:"ONNXRUNTIME_LIB"`
	DetSize           int     `envconfig:"DET_SIZE" default:"640"`
	DetThreshold      float64 `envconfig:"DET_THRESHOLD" default:"0.5"`
	NMSThreshold      float64 `envconfig:"NMS_THRESHOLD" default:"0.4"`
	EnableRecognition bool    `envconfig:"ENABLE_RECOGNITION" default:"true"`

	// Remote analyzer
	RemoteURL     string        `envconfig:"REMOTE_URL" default:"http://localhost:18082"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"30s"`

	// AWS Rekognition analyzer
	AWSRegion                string  `envconfig:"AWS_REGION" default:"us-east-1"`
	RekognitionMinConfidence float64 `envconfig:"REKOGNITION_MIN_CONFIDENCE" default:"0"`

	// Logging
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Analyzer = strings.ToLower(strings.TrimSpace(cfg.Analyzer))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv reads a .env file into the process environment outside
// production. Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if os.Getenv("ENV") == "production" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}

	switch c.Analyzer {
	case AnalyzerONNX, AnalyzerRekognition, AnalyzerRemote, AnalyzerMock:
	default:
		return fmt.Errorf("unknown ANALYZER %q", c.Analyzer)
	}

	if c.DetSize <= 0 || c.DetSize%32 != 0 {
		return fmt.Errorf("DET_SIZE must be a positive multiple of 32, got %d", c.DetSize)
	}
	if c.DetThreshold <= 0 || c.DetThreshold > 1 {
		return fmt.Errorf("DET_THRESHOLD must be in (0, 1], got %g", c.DetThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS_THRESHOLD must be in (0, 1], got %g", c.NMSThreshold)
	}
	if c.RekognitionMinConfidence < 0 || c.RekognitionMinConfidence > 100 {
		return fmt.Errorf("REKOGNITION_MIN_CONFIDENCE must be in [0, 100], got %g", c.RekognitionMinConfidence)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
