package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/imagecodec"
)

// DetectionService turns uploaded image bytes into face records using the
// one analyzer shared by the process.
type DetectionService struct {
	analyzer    analyzer.FaceAnalyzer
	serialize   bool
	guard       sync.Mutex
	logger      *slog.Logger
	auditLogger audit.Logger
}

// NewDetectionService wires the analyzer in. Calls into a non-reentrant
// analyzer are serialized.
func NewDetectionService(a analyzer.FaceAnalyzer, logger *slog.Logger, auditLogger audit.Logger) *DetectionService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &DetectionService{
		analyzer:    a,
		serialize:   !analyzer.IsReentrant(a),
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AnalyzerName reports which backend serves detections
func (s *DetectionService) AnalyzerName() string {
	return s.analyzer.Name()
}

// Close releases the analyzer. It waits for an in-flight inference on a
// serialized analyzer; no Detect call may follow.
func (s *DetectionService) Close() error {
	s.guard.Lock()
	defer s.guard.Unlock()
	return s.analyzer.Close()
}

// Detect decodes the image, runs the analyzer once and maps the result.
// Undecodable input fails with domain.ErrInvalidImage before any inference.
func (s *DetectionService) Detect(ctx context.Context, imageBytes []byte, opts domain.DetectOptions) (*domain.DetectionResult, error) {
	start := time.Now()

	result, err := s.detect(ctx, imageBytes, opts, start)
	s.logAudit(ctx, len(imageBytes), opts, result, err, time.Since(start))

	return result, err
}

func (s *DetectionService) detect(ctx context.Context, imageBytes []byte, opts domain.DetectOptions, start time.Time) (*domain.DetectionResult, error) {
	decoded, err := imagecodec.Decode(imageBytes)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	if opts.MinFaceSize != domain.DefaultMinFaceSize {
		s.logger.DebugContext(ctx, "min_face_size is accepted but not applied",
			"min_face_size", opts.MinFaceSize,
		)
	}

	faces, err := s.analyze(ctx, analyzer.Frame{
		Image:  decoded.Image,
		Raw:    imageBytes,
		Format: decoded.Format,
	}, analyzer.Options{ExtractEmbedding: opts.ExtractEmbedding})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidImage) {
			return nil, err
		}
		return nil, domain.ErrInternal.WithError(err)
	}

	records := make([]domain.FaceRecord, 0, len(faces))
	for i, face := range faces {
		record := domain.FaceRecord{
			BBox: [4]int{
				int(face.BBox[0]),
				int(face.BBox[1]),
				int(face.BBox[2]),
				int(face.BBox[3]),
			},
			Confidence: face.Score,
		}

		if opts.ExtractEmbedding && face.Embedding != nil {
			record.Embedding = face.Embedding
		}

		if opts.ReturnFaceData {
			if crop, ok := imagecodec.Crop(decoded.Image, record.BBox); ok {
				data, err := imagecodec.EncodeJPEGBase64(crop)
				if err != nil {
					return nil, domain.ErrInternal.WithError(fmt.Errorf("encode face %d: %w", i, err))
				}
				record.FaceData = data
			}
		}

		records = append(records, record)
	}

	return &domain.DetectionResult{
		Faces:       records,
		FacesCount:  len(records),
		ProcessTime: time.Since(start),
	}, nil
}

// analyze makes the single analyzer call, holding the guard when needed and
// turning a panic into an error.
func (s *DetectionService) analyze(ctx context.Context, frame analyzer.Frame, opts analyzer.Options) (faces []analyzer.DetectedFace, err error) {
	if s.serialize {
		s.guard.Lock()
		defer s.guard.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			faces, err = nil, fmt.Errorf("analyzer %s panicked: %v", s.analyzer.Name(), r)
		}
	}()

	return s.analyzer.Analyze(ctx, frame, opts)
}

// logAudit records the request; failures never affect the response
func (s *DetectionService) logAudit(ctx context.Context, imageSize int, opts domain.DetectOptions, result *domain.DetectionResult, err error, elapsed time.Duration) {
	event := audit.Event{
		EventType:   audit.EventFacesDetected,
		Analyzer:    s.analyzer.Name(),
		Success:     err == nil,
		ImageBytes:  imageSize,
		ProcessTime: elapsed,
		Metadata: map[string]string{
			"min_face_size":     strconv.Itoa(opts.MinFaceSize),
			"return_face_data":  strconv.FormatBool(opts.ReturnFaceData),
			"extract_embedding": strconv.FormatBool(opts.ExtractEmbedding),
		},
	}
	if err != nil {
		event.EventType = audit.EventDetectionFailed
		event.Error = err.Error()
	}
	if result != nil {
		event.FacesCount = result.FacesCount
	}

	_ = s.auditLogger.Log(ctx, event)
}
