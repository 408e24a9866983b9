package detectionHandler

import (
	detectionService "FaceTrigger/internal/api/detection/service"
	"FaceTrigger/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
	}
}

// StartRoot registers the unversioned polling route kept for existing clients.
func (h *DetectionHandler) StartRoot(app fiber.Router) {
	app.Get("/detect_face", h.DetectFace)
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	face := srv.Group("/face")
	face.Get("/status", h.GetStatus)
	face.Use("/ws", wsMiddleware)
	face.Get("/ws", websocket.New(h.handleFaceWebSocket))

	servo := srv.Group("/servo")
	servo.Post("/pulse", h.middleware.NewRateLimiter, h.TriggerPulse)
}
