package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
)

// Version is reported by GET /info.
const Version = "1.0.0"

type HealthHandler struct {
	analyzer    string
	selection   execprovider.Selection
	cpuFeatures []string
}

func NewHealthHandler(analyzerName string, selection execprovider.Selection, cpuFeatures []string) *HealthHandler {
	if cpuFeatures == nil {
		cpuFeatures = []string{}
	}
	return &HealthHandler{
		analyzer:    analyzerName,
		selection:   selection,
		cpuFeatures: cpuFeatures,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type InfoResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Analyzer string `json:"analyzer"`
	execprovider.Selection
	CPUFeatures []string `json:"cpu_features"`
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Message: "InsightFace API running",
	})
}

// Info handles GET /info
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(InfoResponse{
		Status:      "ok",
		Version:     Version,
		Analyzer:    h.analyzer,
		Selection:   h.selection,
		CPUFeatures: h.cpuFeatures,
	})
}
