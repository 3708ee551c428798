package remote

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/imagecodec"
)

// Analyzer forwards frames to another instance of this API (or any service
// speaking the same /detect contract).
type Analyzer struct {
	client *Client
}

var _ analyzer.FaceAnalyzer = (*Analyzer)(nil)

// New creates a remote analyzer
func New(config Config) *Analyzer {
	return &Analyzer{client: NewClient(config)}
}

func (a *Analyzer) Name() string { return "remote" }

func (a *Analyzer) Close() error {
	a.client.httpClient.CloseIdleConnections()
	return nil
}

func (a *Analyzer) Reentrant() bool { return true }

// Ping checks that the upstream answers /info with status ok
func (a *Analyzer) Ping(ctx context.Context) error {
	info, err := a.client.Info(ctx)
	if err != nil {
		return err
	}
	if info.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnavailable, info.Status)
	}
	return nil
}

func (a *Analyzer) Analyze(ctx context.Context, frame analyzer.Frame, opts analyzer.Options) ([]analyzer.DetectedFace, error) {
	payload, filename := frame.Raw, "image."+frame.Format
	if len(payload) == 0 {
		if frame.Image == nil {
			return nil, domain.ErrInvalidImage
		}
		encoded, err := imagecodec.EncodeJPEG(frame.Image)
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		payload, filename = encoded, "image.jpeg"
	}

	resp, err := a.client.Detect(ctx, payload, filename, opts.ExtractEmbedding)
	if err != nil {
		return nil, fmt.Errorf("remote detect: %w", err)
	}

	faces := make([]analyzer.DetectedFace, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("%w: face %d has %d bbox values", ErrInvalidResponse, i, len(f.BBox))
		}
		face := analyzer.DetectedFace{
			BBox:  [4]float64{float64(f.BBox[0]), float64(f.BBox[1]), float64(f.BBox[2]), float64(f.BBox[3])},
			Score: f.Confidence,
		}
		if opts.ExtractEmbedding && len(f.Embedding) > 0 {
			face.Embedding = f.Embedding
		}
		faces = append(faces, face)
	}

	return faces, nil
}
