package mock

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
)

const (
	embeddingDimension = 512
	// minSide is the smallest image edge the mock still "finds" a face on
	minSide = 32
)

// ErrNoImage is returned when the frame carries no pixels.
var ErrNoImage = errors.New("mock analyzer: frame has no image")

// Analyzer implements analyzer.FaceAnalyzer for tests and local development.
// It reports one centered face and a deterministic embedding.
type Analyzer struct{}

// New creates a new mock analyzer
func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Name() string { return "mock" }

func (a *Analyzer) Close() error { return nil }

// Reentrant: the mock holds no state.
func (a *Analyzer) Reentrant() bool { return true }

// Analyze returns a single face covering the central 80% of the image.
func (a *Analyzer) Analyze(ctx context.Context, frame analyzer.Frame, opts analyzer.Options) ([]analyzer.DetectedFace, error) {
	if frame.Image == nil {
		return nil, ErrNoImage
	}

	b := frame.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if b.Dx() < minSide || b.Dy() < minSide {
		return []analyzer.DetectedFace{}, nil
	}

	face := analyzer.DetectedFace{
		BBox:  [4]float64{w * 0.1, h * 0.1, w * 0.9, h * 0.9},
		Score: 0.99,
		Landmarks: [][2]float64{
			{w * 0.35, h * 0.4},
			{w * 0.65, h * 0.4},
			{w * 0.5, h * 0.55},
			{w * 0.38, h * 0.7},
			{w * 0.62, h * 0.7},
		},
	}

	if opts.ExtractEmbedding {
		face.Embedding = generateEmbedding(frame.Raw)
	}

	return []analyzer.DetectedFace{face}, nil
}

// generateEmbedding derives a unit-length vector from the image hash
func generateEmbedding(image []byte) []float32 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, embeddingDimension)
	for i, v := range embedding {
		if norm > 0 {
			out[i] = float32(v / norm)
		}
	}

	return out
}

var _ analyzer.FaceAnalyzer = (*Analyzer)(nil)
