package opencv

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/vision"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

type DNNConfig struct {
	ModelPath     string
	ConfigPath    string
	MinConfidence float64
}

// DNNDetector runs the OpenCV res10 SSD face model, which reports a score
// per face so MinConfidence applies.
type DNNDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	cfg    DNNConfig
	closed bool
}

func NewDNNDetector(cfg DNNConfig) (*DNNDetector, error) {
	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("error reading network model: %s", cfg.ModelPath)
	}
	return &DNNDetector{net: net, cfg: cfg}, nil
}

func (d *DNNDetector) Detect(ctx context.Context, frame *entity.Frame) (*entity.Detection, error) {
	start := time.Now()

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode frame: empty image")
	}

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(300, 300), gocv.NewScalar(104, 177, 123, 0), false, false)
	defer blob.Close()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrDetectorClosed
	}
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	detections := gocv.GetBlobChannel(out, 0, 0)
	defer detections.Close()

	width, height := float32(img.Cols()), float32(img.Rows())
	var boxes []entity.BoundingBox
	var scores []float64
	for r := 0; r < detections.Rows(); r++ {
		boxes = append(boxes, toBox(image.Rect(
			int(detections.GetFloatAt(r, 3)*width),
			int(detections.GetFloatAt(r, 4)*height),
			int(detections.GetFloatAt(r, 5)*width),
			int(detections.GetFloatAt(r, 6)*height),
		)))
		scores = append(scores, float64(detections.GetFloatAt(r, 2)))
	}

	return vision.BuildDetection(boxes, scores, d.cfg.MinConfidence, time.Since(start)), nil
}

func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
