package face

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer/mock"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer/onnx"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer/rekognition"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer/remote"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/config"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
)

// AnalyzerType defines supported face analyzer backends
type AnalyzerType string

const (
	// AnalyzerTypeONNX runs the models in-process (default)
	AnalyzerTypeONNX AnalyzerType = config.AnalyzerONNX
	// AnalyzerTypeRekognition delegates detection to AWS Rekognition
	AnalyzerTypeRekognition AnalyzerType = config.AnalyzerRekognition
	// AnalyzerTypeRemote forwards to another service with the same /detect contract
	AnalyzerTypeRemote AnalyzerType = config.AnalyzerRemote
	// AnalyzerTypeMock is a deterministic backend for dev/test
	AnalyzerTypeMock AnalyzerType = config.AnalyzerMock
)

const pingTimeout = 5 * time.Second

// hostOnly is the availability reported by backends that do not run a
// model on this host.
var hostOnly = []string{execprovider.CPU}

// NewFaceAnalyzer builds the process-wide analyzer and the execution
// provider selection that describes it.
//
// Environment variables:
//   - ANALYZER: "onnx", "rekognition", "remote" or "mock" (default: "onnx")
//   - INFERENCE_BACKEND: execution provider preference for onnx (default: "auto")
//   - ONNXRUNTIME_LIB, MODEL_DIR, DETECTOR_MODEL, RECOGNIZER_MODEL: onnx model setup
//   - REMOTE_URL, REMOTE_TIMEOUT: remote upstream
//   - AWS_REGION: AWS region for Rekognition (credentials via the AWS SDK chain)
//   - REKOGNITION_MIN_CONFIDENCE: drop Rekognition faces below this confidence (0-100)
func NewFaceAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analyzer.FaceAnalyzer, execprovider.Selection, error) {
	if !execprovider.IsKnown(cfg.InferenceBackend) {
		logger.Warn("unknown inference backend, using CPU",
			"backend", cfg.InferenceBackend,
		)
	}

	if err := execprovider.Prepare(cfg.InferenceBackend); err != nil {
		return nil, execprovider.Selection{}, fmt.Errorf("prepare backend %s: %w", cfg.InferenceBackend, err)
	}

	a, err := createAnalyzer(ctx, cfg, logger)
	if err != nil {
		return nil, execprovider.Selection{}, err
	}

	return a, describeProviders(cfg.InferenceBackend, a), nil
}

func createAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analyzer.FaceAnalyzer, error) {
	switch AnalyzerType(cfg.Analyzer) {
	case AnalyzerTypeONNX, "":
		return createONNXAnalyzer(cfg, logger)

	case AnalyzerTypeRekognition:
		a, err := rekognition.New(ctx, rekognitionConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("create rekognition analyzer: %w", err)
		}
		return a, nil

	case AnalyzerTypeRemote:
		return createRemoteAnalyzer(ctx, cfg, logger), nil

	case AnalyzerTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown analyzer type: %s (supported: %s, %s, %s, %s)",
			cfg.Analyzer, AnalyzerTypeONNX, AnalyzerTypeRekognition, AnalyzerTypeRemote, AnalyzerTypeMock)
	}
}

// describeProviders builds the /info selection for a, asking the analyzer
// itself when it runs models on this host.
func describeProviders(backend string, a analyzer.FaceAnalyzer) execprovider.Selection {
	reporter, ok := a.(analyzer.ProviderReporter)
	if !ok {
		return execprovider.Resolve(backend, hostOnly)
	}

	sel := execprovider.Resolve(backend, reporter.AvailableProviders())
	if active := reporter.ActiveProviders(); len(active) > 0 {
		sel.Active = active[0]
	}
	return sel
}

// createONNXAnalyzer initializes the runtime, checks providers and loads
// the models with the resulting preference.
func createONNXAnalyzer(cfg *config.Config, logger *slog.Logger) (analyzer.FaceAnalyzer, error) {
	if err := onnx.InitRuntime(cfg.ONNXRuntimeLib); err != nil {
		return nil, err
	}

	sel := execprovider.Resolve(cfg.InferenceBackend, onnx.SupportedProviders())

	a, err := onnx.New(onnxConfig(cfg), sel.Requested, sel.Available, logger)
	if err != nil {
		return nil, fmt.Errorf("create onnx analyzer: %w", err)
	}

	return a, nil
}

// onnxConfig overlays the configured model settings on the buffalo_l defaults
func onnxConfig(cfg *config.Config) onnx.Config {
	onnxCfg := onnx.DefaultConfig()
	if cfg.ModelDir != "" {
		onnxCfg.ModelDir = cfg.ModelDir
	}
	if cfg.DetectorModel != "" {
		onnxCfg.DetectorModel = cfg.DetectorModel
	}
	if cfg.RecognizerModel != "" {
		onnxCfg.RecognizerModel = cfg.RecognizerModel
	}
	if cfg.DetSize > 0 {
		onnxCfg.DetSize = cfg.DetSize
	}
	if cfg.DetThreshold > 0 {
		onnxCfg.DetThreshold = cfg.DetThreshold
	}
	if cfg.NMSThreshold > 0 {
		onnxCfg.NMSThreshold = cfg.NMSThreshold
	}
	onnxCfg.EnableRecognition = cfg.EnableRecognition
	return onnxCfg
}

func rekognitionConfig(cfg *config.Config) rekognition.Config {
	rekConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekConfig.Region = cfg.AWSRegion
	}
	rekConfig.MinConfidence = float32(cfg.RekognitionMinConfidence)
	return rekConfig
}

// createRemoteAnalyzer builds the client and checks the upstream once.
// An unreachable upstream is logged, not fatal: it may come up later.
func createRemoteAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) analyzer.FaceAnalyzer {
	remoteConfig := remote.Config{
		BaseURL: cfg.RemoteURL,
		Timeout: cfg.RemoteTimeout,
	}

	// Use defaults for unset fields
	if remoteConfig.BaseURL == "" {
		remoteConfig.BaseURL = remote.DefaultConfig().BaseURL
	}
	if remoteConfig.Timeout <= 0 {
		remoteConfig.Timeout = remote.DefaultConfig().Timeout
	}

	a := remote.New(remoteConfig)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.Ping(pingCtx); err != nil {
		logger.Warn("remote analyzer not reachable at startup",
			"url", remoteConfig.BaseURL,
			"error", err,
		)
	}

	return a
}
