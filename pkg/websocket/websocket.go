package websocketPkg

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/vision"
	"FaceTrigger/pkg/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const DefaultFaceDetectionURL = "ws://localhost:8000/api/v1/face/ws"

var ErrNotConnected = errors.New("not connected to face detection service")

type IWebsocket interface {
	ProcessFaceFrame(ctx context.Context, frame []byte) (*entity.DetectionResult, error)
	Detect(ctx context.Context, frame *entity.Frame) (*entity.Detection, error)
	IsConnected() bool
	Close() error
}

type Config struct {
	URL           string
	MinConfidence float64
	MaxWidth      int
	MaxHeight     int
	PingInterval  time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

type webSocketClient struct {
	faceConn *websocket.Conn
	mu       sync.Mutex
	cfg      Config
	log      *logrus.Logger
	utils    utils.IUtils
	closed   bool
}

func NewAIWebSocketClient(cfg Config, log *logrus.Logger, u utils.IUtils) IWebsocket {
	if cfg.URL == "" {
		cfg.URL = DefaultFaceDetectionURL
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if u == nil {
		u = utils.New()
	}

	client := &webSocketClient{
		cfg:   cfg,
		log:   log,
		utils: u,
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if _, err := c.ensureConnected(); err != nil {
		c.log.Warnf("Initial connection to face detection service failed: %v. Will retry on demand.", err)
	} else {
		c.log.Info("Successfully connected to face detection service")
	}
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faceConn != nil
}

func (c *webSocketClient) ensureConnected() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.faceConn != nil {
		return c.faceConn, nil
	}
	return c.dialLocked()
}

func (c *webSocketClient) dialLocked() (*websocket.Conn, error) {
	if c.closed {
		return nil, ErrNotConnected
	}

	c.log.Infof("Connecting to face detection service at %s", c.cfg.URL)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.faceConn = conn

	go c.keepAlive(conn)

	return conn, nil
}

func (c *webSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.faceConn != nil {
		err := c.faceConn.Close()
		c.faceConn = nil
		return err
	}
	return nil
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.faceConn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(c.cfg.WriteTimeout),
		)

		if err != nil {
			c.log.Warnf("Ping failed for face detection service, marking connection as dead: %v", err)
			c.faceConn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.faceConn == conn {
		c.faceConn = nil
	}
	conn.Close()
}

func (c *webSocketClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func (c *webSocketClient) ProcessFaceFrame(ctx context.Context, frame []byte) (*entity.DetectionResult, error) {
	conn, err := c.ensureConnected()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to face detection service: %w", err)
	}

	c.mu.Lock()
	conn.SetWriteDeadline(c.deadline(ctx, c.cfg.WriteTimeout))

	c.log.Debugf("Sending face frame of size: %d bytes", len(frame))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.mu.Unlock()
		c.dropConnection(conn)
		return nil, fmt.Errorf("error sending face frame: %w", err)
	}

	conn.SetReadDeadline(c.deadline(ctx, c.cfg.ReadTimeout))
	c.mu.Unlock()

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error reading face message: %w", err)
	}

	c.mu.Lock()
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	c.mu.Unlock()

	var result entity.DetectionResult
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling face response: %w", err)
	}

	c.log.Debugf("Face Detection Result: Status=%s, Faces=%d, Instructions=%v", result.Status, result.Faces, result.Instructions)

	return &result, nil
}

// Detect implements vision.Detector on top of the remote service.
func (c *webSocketClient) Detect(ctx context.Context, frame *entity.Frame) (*entity.Detection, error) {
	start := time.Now()

	data := frame.Data
	if c.cfg.MaxWidth > 0 || c.cfg.MaxHeight > 0 {
		optimized, err := c.utils.OptimizeFrame(frame.Data, c.cfg.MaxWidth, c.cfg.MaxHeight, 85)
		if err != nil {
			return nil, fmt.Errorf("failed to optimize frame: %w", err)
		}
		data = optimized
	}

	result, err := c.ProcessFaceFrame(ctx, data)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("face detection service error: %s", result.Error)
	}

	return ToDetection(result, c.cfg.MinConfidence, time.Since(start)), nil
}

func ToDetection(result *entity.DetectionResult, minConfidence float64, latency time.Duration) *entity.Detection {
	faces := result.Faces
	if faces == 0 && (result.FacePosition != nil || len(result.BBox) == 4) {
		faces = 1
	}

	var boxes []entity.BoundingBox
	var scores []float64
	for i := 0; i < faces; i++ {
		box := entity.BoundingBox{}
		if i == 0 && len(result.BBox) == 4 {
			box = entity.BoundingBox{
				X:      result.BBox[0],
				Y:      result.BBox[1],
				Width:  result.BBox[2] - result.BBox[0],
				Height: result.BBox[3] - result.BBox[1],
			}
		}
		boxes = append(boxes, box)
		if result.Confidence > 0 {
			scores = append(scores, result.Confidence)
		}
	}

	return vision.BuildDetection(boxes, scores, minConfidence, latency)
}
