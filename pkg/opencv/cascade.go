package opencv

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/vision"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

type CascadeConfig struct {
	Path         string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

// CascadeDetector finds frontal faces with an OpenCV Haar cascade. Cascades
// carry no score, so every hit is reported with confidence 1.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	cfg        CascadeConfig
	closed     bool
}

var ErrDetectorClosed = errors.New("detector closed")

func NewCascadeDetector(cfg CascadeConfig) (*CascadeDetector, error) {
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = 1.1
	}
	if cfg.MinNeighbors <= 0 {
		cfg.MinNeighbors = 5
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = 30
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.Path) {
		classifier.Close()
		return nil, fmt.Errorf("error reading cascade file: %s", cfg.Path)
	}

	return &CascadeDetector{classifier: classifier, cfg: cfg}, nil
}

func (d *CascadeDetector) Detect(ctx context.Context, frame *entity.Frame) (*entity.Detection, error) {
	start := time.Now()

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode frame: empty image")
	}

	gocv.EqualizeHist(img, &img)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDetectorClosed
	}
	rects := d.classifier.DetectMultiScaleWithParams(
		img,
		d.cfg.ScaleFactor,
		d.cfg.MinNeighbors,
		0,
		image.Pt(d.cfg.MinSize, d.cfg.MinSize),
		image.Pt(0, 0),
	)
	d.mu.Unlock()

	boxes := make([]entity.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, toBox(r))
	}

	return vision.BuildDetection(boxes, nil, 0, time.Since(start)), nil
}

func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}

func toBox(r image.Rectangle) entity.BoundingBox {
	return entity.BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}
