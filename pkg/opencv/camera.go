package opencv

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/vision"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const DefaultJPEGQuality = 90

type Camera struct {
	mu      sync.Mutex
	device  int
	quality int
	capture *gocv.VideoCapture
	img     gocv.Mat
	seq     uint64
	closed  bool
	log     *logrus.Logger
}

func OpenCamera(device int, quality int, log *logrus.Logger) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %d not accessible", device)
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	log.WithFields(logrus.Fields{
		"device": device,
		"width":  capture.Get(gocv.VideoCaptureFrameWidth),
		"height": capture.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Camera opened")

	return &Camera{
		device:  device,
		quality: quality,
		capture: capture,
		img:     gocv.NewMat(),
		log:     log,
	}, nil
}

func (c *Camera) Read(ctx context.Context) (*entity.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.capture.IsOpened() {
		return nil, vision.ErrCameraClosed
	}

	if ok := c.capture.Read(&c.img); !ok {
		return nil, fmt.Errorf("failed to read frame from camera %d", c.device)
	}
	if c.img.Empty() {
		return nil, vision.ErrEmptyFrame
	}
	capturedAt := time.Now()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	c.seq++
	return &entity.Frame{
		Data:       append([]byte(nil), buf.GetBytes()...),
		Width:      c.img.Cols(),
		Height:     c.img.Rows(),
		Sequence:   c.seq,
		CapturedAt: capturedAt,
	}, nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	c.log.WithField("device", c.device).Info("Camera released")
	return c.capture.Close()
}
