package handler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/domain"
)

// DetectionService defines the interface for face detection operations
type DetectionService interface {
	Detect(ctx context.Context, imageBytes []byte, opts domain.DetectOptions) (*domain.DetectionResult, error)
	AnalyzerName() string
}

type DetectHandler struct {
	service DetectionService
}

func NewDetectHandler(service DetectionService) *DetectHandler {
	return &DetectHandler{
		service: service,
	}
}

type DetectResponse struct {
	Status      string              `json:"status"`
	FacesCount  int                 `json:"faces_count"`
	Faces       []domain.FaceRecord `json:"faces"`
	ProcessTime float64             `json:"process_time"`
}

// Detect handles POST /detect
func (h *DetectHandler) Detect(c *fiber.Ctx) error {
	opts, err := parseDetectOptions(c)
	if err != nil {
		return err
	}

	imageBytes, err := extractImage(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		ctx = audit.WithRequestID(ctx, id)
	}

	result, err := h.service.Detect(ctx, imageBytes, opts)
	if err != nil {
		return err
	}

	faces := result.Faces
	if faces == nil {
		faces = []domain.FaceRecord{}
	}

	return c.JSON(DetectResponse{
		Status:      "ok",
		FacesCount:  result.FacesCount,
		Faces:       faces,
		ProcessTime: result.ProcessTime.Seconds(),
	})
}

func parseDetectOptions(c *fiber.Ctx) (domain.DetectOptions, error) {
	opts := domain.DefaultDetectOptions()

	if raw := strings.TrimSpace(c.FormValue("min_face_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return opts, domain.ErrValidationFailed.WithError(
				fmt.Errorf("min_face_size must be a non-negative integer, got %q", raw))
		}
		opts.MinFaceSize = size
	}

	var err error
	if opts.ReturnFaceData, err = parseFormBool("return_face_data", c.FormValue("return_face_data"), opts.ReturnFaceData); err != nil {
		return opts, err
	}
	if opts.ExtractEmbedding, err = parseFormBool("extract_embedding", c.FormValue("extract_embedding"), opts.ExtractEmbedding); err != nil {
		return opts, err
	}

	return opts, nil
}

// parseFormBool accepts the usual spellings of a boolean form field. An
// absent field yields def.
func parseFormBool(field, value string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def, nil
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return def, domain.ErrValidationFailed.WithError(
			fmt.Errorf("%s must be a boolean, got %q", field, value))
	}
}

func extractImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("file is required: %w", err))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInternal.WithError(fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInternal.WithError(fmt.Errorf("read upload: %w", err))
	}

	return imageBytes, nil
}
