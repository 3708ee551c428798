package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
)

type Dependencies struct {
	DetectionService handler.DetectionService
	Selection        execprovider.Selection
	CPUFeatures      []string
	MaxUploadBytes   int
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	cfg := fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "InsightFace API",
	}
	if deps != nil && deps.MaxUploadBytes > 0 {
		cfg.BodyLimit = deps.MaxUploadBytes
	}

	return &Router{
		app:    fiber.New(cfg),
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	if r.deps == nil || r.deps.DetectionService == nil {
		return
	}

	healthHandler := handler.NewHealthHandler(
		r.deps.DetectionService.AnalyzerName(),
		r.deps.Selection,
		r.deps.CPUFeatures,
	)
	r.app.Get("/", healthHandler.Root)
	r.app.Get("/info", healthHandler.Info)

	detectHandler := handler.NewDetectHandler(r.deps.DetectionService)
	r.app.Post("/detect", detectHandler.Detect)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
