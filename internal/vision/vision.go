package vision

import (
	"FaceTrigger/internal/entity"
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyFrame   = errors.New("empty frame")
	ErrCameraClosed = errors.New("camera closed")
)

type FrameSource interface {
	Read(ctx context.Context) (*entity.Frame, error)
	Close() error
}

type Detector interface {
	Detect(ctx context.Context, frame *entity.Frame) (*entity.Detection, error)
	Close() error
}

type StateWriter interface {
	Set(present bool, at time.Time) bool
}

type EdgeObserver interface {
	Observe(present bool) bool
}

// Recorder receives per-frame outcomes, typically metrics.
type Recorder interface {
	FrameProcessed(present bool, latency time.Duration)
	ReadError()
	DetectError()
}

type nopRecorder struct{}

func (nopRecorder) FrameProcessed(bool, time.Duration) {}
func (nopRecorder) ReadError()                         {}
func (nopRecorder) DetectError()                       {}

// BuildDetection keeps boxes whose score reaches minConfidence (every box
// when scores is nil) and reports the largest one as the primary face.
func BuildDetection(boxes []entity.BoundingBox, scores []float64, minConfidence float64, latency time.Duration) *entity.Detection {
	result := &entity.Detection{Latency: latency}

	bestArea := -1
	for i, box := range boxes {
		confidence := 1.0
		if scores != nil {
			if i >= len(scores) {
				break
			}
			confidence = scores[i]
			if confidence < minConfidence {
				continue
			}
		}

		result.Faces++
		if box.Area() > bestArea {
			b := box
			bestArea = b.Area()
			result.Box = &b
			result.Confidence = confidence
		}
	}

	result.FacePresent = result.Faces > 0
	return result
}
