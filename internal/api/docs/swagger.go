package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// RootResponse represents the liveness response
type RootResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"InsightFace API running"`
}

// InfoResponse represents the runtime description returned by /info
type InfoResponse struct {
	Status             string   `json:"status" example:"ok"`
	Version            string   `json:"version" example:"1.0.0"`
	Analyzer           string   `json:"analyzer" example:"onnx"`
	Backend            string   `json:"backend" example:"auto"`
	RequestedProviders []string `json:"requested_providers" example:"CUDAExecutionProvider,CPUExecutionProvider"`
	AvailableProviders []string `json:"available_providers" example:"CPUExecutionProvider,CUDAExecutionProvider"`
	ActiveProvider     string   `json:"active_provider" example:"CUDAExecutionProvider"`
	CPUFeatures        []string `json:"cpu_features" example:"sse4.1,avx2"`
}

// FaceData represents one detected face
type FaceData struct {
	BBox       []int     `json:"bbox" example:"34,50,210,260"`
	Confidence float64   `json:"confidence" example:"0.87"`
	Embedding  []float32 `json:"embedding,omitempty"`
	FaceData   string    `json:"face_data,omitempty" example:"/9j/4AAQSkZJRg..."`
}

// DetectResponse represents a successful detection
type DetectResponse struct {
	Status      string     `json:"status" example:"ok"`
	FacesCount  int        `json:"faces_count" example:"1"`
	Faces       []FaceData `json:"faces"`
	ProcessTime float64    `json:"process_time" example:"0.042"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message" example:"invalid image format"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "InsightFace Detection API",
		Version:     "v1.0.0",
		Description: "Face detection and embedding extraction over HTTP with selectable inference backends",
		Host:        "localhost:18081",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET / - Liveness
		endpoint.New(
			endpoint.GET,
			"/",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness check"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RootResponse{}, "200", "Service is running"),
			}),
		),

		// GET /info - Runtime description
		endpoint.New(
			endpoint.GET,
			"/info",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Describe the inference runtime"),
			endpoint.WithDescription("Reports the analyzer, requested backend, provider selection and host CPU features"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(InfoResponse{}, "200", "Runtime description"),
			}),
		),

		// POST /detect - Face detection
		endpoint.New(
			endpoint.POST,
			"/detect",
			endpoint.WithTags("Detection"),
			endpoint.WithSummary("Detect faces in an image"),
			endpoint.WithDescription("Detects every face in the uploaded image. Optionally returns a 512-d embedding and a base64 JPEG crop per face."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.FileParam("file", parameter.WithRequired(), parameter.WithDescription("Image file (JPEG, PNG, GIF, BMP, TIFF, WebP)")),
				parameter.IntParam("min_face_size", parameter.Form, parameter.WithDescription("Minimum face size in pixels (default: 20, currently not applied)")),
				parameter.BoolParam("return_face_data", parameter.Form, parameter.WithDescription("Include a base64 JPEG crop per face (default: false)")),
				parameter.BoolParam("extract_embedding", parameter.Form, parameter.WithDescription("Include the face embedding (default: true)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DetectResponse{}, "200", "Detection completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Status: "error", Message: "invalid image format"}, "400", "Bad Request"),
				response.New(ErrorResponse{Status: "error", Message: "Request Entity Too Large"}, "413", "Payload Too Large"),
				response.New(ErrorResponse{Status: "error", Message: "internal server error: ..."}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
