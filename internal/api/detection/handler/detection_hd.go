package detectionHandler

import (
	"FaceTrigger/internal/api/detection"
	contextPkg "FaceTrigger/pkg/context"
	"FaceTrigger/pkg/handlerUtil"
	"FaceTrigger/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"time"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

func (h *DetectionHandler) DetectFace(ctx *fiber.Ctx) error {
	c := contextPkg.FromFiberCtx(ctx)
	return ctx.JSON(h.detectionService.GetFaceDetected(c))
}

func (h *DetectionHandler) GetStatus(ctx *fiber.Ctx) error {
	c := contextPkg.FromFiberCtx(ctx)
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.detectionService.GetStatus(c))
}

func (h *DetectionHandler) TriggerPulse(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	var req detection.PulseRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrBadRequest, ctx.Path(), "parse_request_body")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.detectionService.TriggerPulse(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "trigger_pulse")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusAccepted, result)
}

func (h *DetectionHandler) handleFaceWebSocket(c *websocket.Conn) {
	h.log.Info("Face state WebSocket client connected")
	defer h.log.Info("Face state WebSocket client disconnected")

	states, cancel := h.detectionService.Subscribe(8)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Errorf("Face state WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteJSON(detection.FaceStateMessage{
				FaceDetected: state.FaceDetected,
				UpdatedAt:    state.UpdatedAt,
			}); err != nil {
				h.log.WithFields(log.Fields{"error": err.Error()}).Warn("Error writing face state")
				return
			}
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
