package domain

import "time"

// DefaultMinFaceSize is the min_face_size form default.
const DefaultMinFaceSize = 20

// DetectOptions are the per-request switches of POST /detect.
type DetectOptions struct {
	// MinFaceSize is accepted and validated but not applied as a filter.
	MinFaceSize      int
	ReturnFaceData   bool
	ExtractEmbedding bool
}

// DefaultDetectOptions mirrors the form defaults.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MinFaceSize:      DefaultMinFaceSize,
		ReturnFaceData:   false,
		ExtractEmbedding: true,
	}
}

// FaceRecord is one detected face as returned to the caller.
type FaceRecord struct {
	BBox       [4]int    `json:"bbox"`
	Confidence float64   `json:"confidence"`
	Embedding  []float32 `json:"embedding,omitempty"`
	FaceData   string    `json:"face_data,omitempty"`
}

// DetectionResult is built fresh for every request and never stored.
type DetectionResult struct {
	Faces       []FaceRecord
	FacesCount  int
	ProcessTime time.Duration
}
