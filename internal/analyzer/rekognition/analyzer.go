package rekognition

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/imagecodec"
)

// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
const maxImageSize = 5 * 1024 * 1024

// landmarkOrder follows the five-point layout used by the local detector
var landmarkOrder = []types.LandmarkType{
	types.LandmarkTypeEyeLeft,
	types.LandmarkTypeEyeRight,
	types.LandmarkTypeNose,
	types.LandmarkTypeMouthLeft,
	types.LandmarkTypeMouthRight,
}

// Analyzer implements analyzer.FaceAnalyzer using AWS Rekognition DetectFaces.
// Rekognition does not expose embeddings, so Embedding is always nil.
type Analyzer struct {
	api    DetectFacesAPI
	config Config
}

var _ analyzer.FaceAnalyzer = (*Analyzer)(nil)

// New creates an analyzer backed by a real Rekognition client
func New(ctx context.Context, cfg Config) (*Analyzer, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewWithAPI(client, cfg), nil
}

// NewWithAPI creates an analyzer around an existing DetectFaces client
func NewWithAPI(api DetectFacesAPI, cfg Config) *Analyzer {
	return &Analyzer{api: api, config: cfg}
}

func (a *Analyzer) Name() string { return "rekognition" }

func (a *Analyzer) Close() error { return nil }

func (a *Analyzer) Reentrant() bool { return true }

// Analyze sends the frame to DetectFaces and converts relative boxes to pixels
func (a *Analyzer) Analyze(ctx context.Context, frame analyzer.Frame, _ analyzer.Options) ([]analyzer.DetectedFace, error) {
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	payload, err := imageBytes(frame)
	if err != nil {
		return nil, err
	}

	output, err := a.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: payload,
		},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	bounds := frame.Image.Bounds()
	width, height := float64(bounds.Dx()), float64(bounds.Dy())

	faces := make([]analyzer.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		confidence := aws.ToFloat32(detail.Confidence)
		if confidence < a.config.MinConfidence {
			continue
		}

		left := float64(aws.ToFloat32(detail.BoundingBox.Left)) * width
		top := float64(aws.ToFloat32(detail.BoundingBox.Top)) * height
		w := float64(aws.ToFloat32(detail.BoundingBox.Width)) * width
		h := float64(aws.ToFloat32(detail.BoundingBox.Height)) * height

		faces = append(faces, analyzer.DetectedFace{
			BBox:      [4]float64{left, top, left + w, top + h},
			Score:     float64(confidence) / 100,
			Landmarks: landmarks(detail.Landmarks, width, height),
		})
	}

	return faces, nil
}

// imageBytes returns a payload Rekognition accepts: JPEG and PNG pass through,
// anything else is re-encoded as JPEG.
func imageBytes(frame analyzer.Frame) ([]byte, error) {
	payload := frame.Raw
	if frame.Format != "jpeg" && frame.Format != "png" || len(payload) == 0 {
		encoded, err := imagecodec.EncodeJPEG(frame.Image)
		if err != nil {
			return nil, fmt.Errorf("re-encode %s image: %w", frame.Format, err)
		}
		payload = encoded
	}

	if len(payload) > maxImageSize {
		return nil, fmt.Errorf("%w (%d bytes, maximum %d)", ErrImageTooLarge, len(payload), maxImageSize)
	}

	return payload, nil
}

func landmarks(marks []types.Landmark, width, height float64) [][2]float64 {
	if len(marks) == 0 {
		return nil
	}

	byType := make(map[types.LandmarkType]types.Landmark, len(marks))
	for _, m := range marks {
		byType[m.Type] = m
	}

	points := make([][2]float64, 0, len(landmarkOrder))
	for _, t := range landmarkOrder {
		m, ok := byType[t]
		if !ok {
			return nil
		}
		points = append(points, [2]float64{
			float64(aws.ToFloat32(m.X)) * width,
			float64(aws.ToFloat32(m.Y)) * height,
		})
	}
	return points
}
