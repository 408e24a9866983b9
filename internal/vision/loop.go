package vision

import (
	"FaceTrigger/internal/entity"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// MaxReadErrors is the number of consecutive failed reads that stop the loop.
	MaxReadErrors int
	FrameInterval time.Duration
}

type Loop struct {
	log      *logrus.Logger
	source   FrameSource
	detector Detector
	state    StateWriter
	trigger  EdgeObserver
	recorder Recorder
	cfg      Config

	mu      sync.Mutex
	running bool
	lastErr error
	done    chan struct{}
}

func NewLoop(
	log *logrus.Logger,
	source FrameSource,
	detector Detector,
	state StateWriter,
	trigger EdgeObserver,
	recorder Recorder,
	cfg Config,
) *Loop {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.MaxReadErrors < 1 {
		cfg.MaxReadErrors = 1
	}
	return &Loop{
		log:      log,
		source:   source,
		detector: detector,
		state:    state,
		trigger:  trigger,
		recorder: recorder,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Start runs the loop in a new goroutine. Done is closed when it exits.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	go func() {
		err := l.Run(ctx)
		l.mu.Lock()
		l.lastErr = err
		l.running = false
		l.mu.Unlock()
		close(l.done)
	}()
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Run samples frames until ctx is cancelled or the camera stops producing
// frames. The camera and detector are released on return.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.source.Close(); err != nil {
			l.log.WithField("error", err.Error()).Warn("Failed to release camera")
		}
		if err := l.detector.Close(); err != nil {
			l.log.WithField("error", err.Error()).Warn("Failed to release detector")
		}
	}()

	l.log.Info("Face detection loop started")
	defer l.log.Info("Face detection loop stopped")

	var ticker *time.Ticker
	if l.cfg.FrameInterval > 0 {
		ticker = time.NewTicker(l.cfg.FrameInterval)
		defer ticker.Stop()
	}

	readErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := l.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.recorder.ReadError()
			readErrors++
			l.log.WithFields(logrus.Fields{
				"error":       err.Error(),
				"consecutive": readErrors,
			}).Error("Unable to read from camera")

			if errors.Is(err, ErrCameraClosed) || readErrors >= l.cfg.MaxReadErrors {
				return fmt.Errorf("camera read failed: %w", err)
			}
			if !l.wait(ctx, ticker) {
				return nil
			}
			continue
		}
		readErrors = 0

		l.process(ctx, frame)

		if !l.wait(ctx, ticker) {
			return nil
		}
	}
}

func (l *Loop) process(ctx context.Context, frame *entity.Frame) {
	start := time.Now()
	result, err := l.detector.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.recorder.DetectError()
		l.log.WithFields(logrus.Fields{
			"error":    err.Error(),
			"sequence": frame.Sequence,
		}).Warn("Face detection failed, frame skipped")
		return
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}

	present := result.FacePresent
	if l.state.Set(present, at) {
		l.log.WithFields(logrus.Fields{
			"face_detected": present,
			"faces":         result.Faces,
			"sequence":      frame.Sequence,
		}).Info("Face presence changed")
	}

	l.trigger.Observe(present)
	l.recorder.FrameProcessed(present, time.Since(start))
}

func (l *Loop) wait(ctx context.Context, ticker *time.Ticker) bool {
	if ticker == nil {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return true
	}
}
