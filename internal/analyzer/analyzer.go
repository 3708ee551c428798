package analyzer

import (
	"context"
	"image"
)

// FaceAnalyzer is the face analysis capability behind POST /detect.
// One instance is built at startup and shared by every request.
type FaceAnalyzer interface {
	// Analyze detects faces in the frame. Faces come back in detector
	// order (highest score first for the ONNX backend).
	Analyze(ctx context.Context, frame Frame, opts Options) ([]DetectedFace, error)

	// Name identifies the backend ("onnx", "rekognition", "remote", "mock").
	Name() string

	// Close releases runtime resources.
	Close() error
}

// Reentrant is implemented by analyzers that tolerate overlapping Analyze
// calls on the same instance. Analyzers that do not implement it, or return
// false, are serialized by the caller.
type Reentrant interface {
	Reentrant() bool
}

// ProviderReporter is implemented by analyzers that run models on this host
// and can tell which execution providers it offers and which ones the loaded
// sessions use. Analyzers without it only offer CPU.
type ProviderReporter interface {
	AvailableProviders() []string
	ActiveProviders() []string
}

// Frame is a decoded upload. Raw and Format are kept for backends that ship
// the original bytes elsewhere.
type Frame struct {
	Image  image.Image
	Raw    []byte
	Format string
}

// Options tune a single Analyze call.
type Options struct {
	// ExtractEmbedding lets backends skip the recognizer when the caller
	// does not want embeddings.
	ExtractEmbedding bool
}

// DetectedFace is a single detection in source image pixels.
type DetectedFace struct {
	// BBox is x1, y1, x2, y2.
	BBox  [4]float64
	Score float64
	// Landmarks holds the five detector keypoints when the backend has them.
	Landmarks [][2]float64
	// Embedding is nil when recognition is disabled or was not requested.
	Embedding []float32
}

// IsReentrant reports whether a may be called concurrently.
func IsReentrant(a FaceAnalyzer) bool {
	r, ok := a.(Reentrant)
	return ok && r.Reentrant()
}
