// Package onnx runs the InsightFace buffalo_l detector and recognizer
// in-process through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
)

// Config holds model locations and detection thresholds
type Config struct {
	ModelDir          string
	DetectorModel     string
	RecognizerModel   string
	DetSize           int
	DetThreshold      float64
	NMSThreshold      float64
	EnableRecognition bool
}

// DefaultConfig returns the buffalo_l defaults
func DefaultConfig() Config {
	return Config{
		ModelDir:          "./models/buffalo_l",
		DetectorModel:     "det_10g.onnx",
		RecognizerModel:   "w600k_r50.onnx",
		DetSize:           640,
		DetThreshold:      0.5,
		NMSThreshold:      0.4,
		EnableRecognition: true,
	}
}

// Analyzer implements analyzer.FaceAnalyzer on ONNX Runtime sessions.
// Sessions are bound to fixed tensors, so calls must not overlap.
type Analyzer struct {
	det       *detector
	rec       *recognizer
	available []string
	active    []string
	logger    *slog.Logger
}

var (
	_ analyzer.FaceAnalyzer     = (*Analyzer)(nil)
	_ analyzer.ProviderReporter = (*Analyzer)(nil)
)

// New loads the models with the given provider preference. available is
// the startup check reported back through AvailableProviders. If sessions
// cannot be created with accelerators, loading is repeated on CPU alone.
// InitRuntime must have succeeded first.
func New(cfg Config, preference, available []string, logger *slog.Logger) (*Analyzer, error) {
	a := &Analyzer{available: available, logger: logger}

	err := a.load(cfg, preference)
	if err != nil && !onlyCPU(preference) {
		logger.Warn("accelerated session failed, falling back to CPU",
			"preference", preference,
			"error", err,
		)
		err = a.load(cfg, []string{execprovider.CPU})
	}
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Analyzer) load(cfg Config, preference []string) error {
	opts, applied, err := newSessionOptions(preference)
	if err != nil {
		return err
	}
	defer func() { _ = opts.Destroy() }()

	det, err := newDetector(filepath.Join(cfg.ModelDir, cfg.DetectorModel),
		cfg.DetSize, cfg.DetThreshold, cfg.NMSThreshold, opts)
	if err != nil {
		return fmt.Errorf("load detector: %w", err)
	}

	var rec *recognizer
	if cfg.EnableRecognition {
		rec, err = newRecognizer(filepath.Join(cfg.ModelDir, cfg.RecognizerModel), opts)
		if err != nil {
			det.destroy()
			return fmt.Errorf("load recognizer: %w", err)
		}
	}

	a.det, a.rec, a.active = det, rec, applied
	return nil
}

func onlyCPU(preference []string) bool {
	for _, p := range preference {
		if p != execprovider.CPU {
			return false
		}
	}
	return true
}

func (a *Analyzer) Name() string { return "onnx" }

// AvailableProviders returns the providers found by the startup check
func (a *Analyzer) AvailableProviders() []string {
	return a.available
}

// ActiveProviders returns the providers registered on the loaded sessions,
// in preference order.
func (a *Analyzer) ActiveProviders() []string {
	return a.active
}

// Analyze detects faces and, when asked and a recognizer is loaded,
// computes one embedding per face.
func (a *Analyzer) Analyze(_ context.Context, frame analyzer.Frame, opts analyzer.Options) ([]analyzer.DetectedFace, error) {
	if frame.Image == nil {
		return nil, errors.New("onnx analyzer: frame has no image")
	}

	img := toNRGBA(frame.Image)

	cands, err := a.det.detect(img)
	if err != nil {
		return nil, err
	}

	faces := make([]analyzer.DetectedFace, 0, len(cands))
	for _, c := range cands {
		face := analyzer.DetectedFace{
			BBox:      c.box,
			Score:     c.score,
			Landmarks: c.kps,
		}

		if opts.ExtractEmbedding && a.rec != nil && c.kps != nil {
			face.Embedding, err = a.rec.embed(img, c.kps)
			if err != nil {
				return nil, fmt.Errorf("extract embedding: %w", err)
			}
		}

		faces = append(faces, face)
	}

	return faces, nil
}

// Close releases sessions and tensors, then the runtime environment
func (a *Analyzer) Close() error {
	if a.det != nil {
		a.det.destroy()
	}
	if a.rec != nil {
		a.rec.destroy()
	}
	if ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
