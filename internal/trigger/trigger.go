package trigger

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/pkg/utils"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrPulseInFlight = errors.New("servo pulse already in progress")

type Actuator interface {
	Pulse(ctx context.Context, duration time.Duration) error
}

type Listener func(event entity.ServoEvent)

type Option func(*Trigger)

// Trigger turns per-frame detection results into servo pulses. A pulse fires
// on the false->true edge only; a false frame re-arms it. At most one pulse
// runs at a time.
type Trigger struct {
	ctx      context.Context
	log      *logrus.Logger
	actuator Actuator
	utils    utils.IUtils
	duration time.Duration

	mu        sync.Mutex
	moved     bool
	listeners []Listener

	inFlight atomic.Bool
	fired    atomic.Uint64
	skipped  atomic.Uint64
	wg       sync.WaitGroup
}

func WithDuration(d time.Duration) Option {
	return func(t *Trigger) {
		t.duration = d
	}
}

func WithUtils(u utils.IUtils) Option {
	return func(t *Trigger) {
		t.utils = u
	}
}

func WithListener(l Listener) Option {
	return func(t *Trigger) {
		t.listeners = append(t.listeners, l)
	}
}

// New binds pulses to ctx; cancelling it cuts the active-position wait short.
func New(ctx context.Context, log *logrus.Logger, actuator Actuator, opts ...Option) *Trigger {
	t := &Trigger{
		ctx:      ctx,
		log:      log,
		actuator: actuator,
		utils:    utils.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Trigger) AddListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Observe feeds one frame result and reports whether a pulse was started.
func (t *Trigger) Observe(present bool) bool {
	t.mu.Lock()
	if !present {
		t.moved = false
		t.mu.Unlock()
		return false
	}
	if t.moved {
		t.mu.Unlock()
		return false
	}
	t.moved = true
	t.mu.Unlock()

	if _, err := t.start(entity.ServoSourceDetection, t.duration); err != nil {
		t.skipped.Add(1)
		t.log.WithField("error", err.Error()).Warn("Face rising edge ignored")
		return false
	}
	return true
}

// Fire starts a manual pulse and returns its event id.
func (t *Trigger) Fire(duration time.Duration) (string, error) {
	return t.start(entity.ServoSourceManual, duration)
}

func (t *Trigger) Busy() bool {
	return t.inFlight.Load()
}

func (t *Trigger) Fired() uint64 {
	return t.fired.Load()
}

func (t *Trigger) Skipped() uint64 {
	return t.skipped.Load()
}

// Wait blocks until the running pulse, if any, has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) start(source string, duration time.Duration) (string, error) {
	if !t.inFlight.CompareAndSwap(false, true) {
		return "", ErrPulseInFlight
	}

	id, err := t.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		t.log.WithField("error", err.Error()).Warn("Failed to generate pulse id")
	}

	t.fired.Add(1)
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer t.inFlight.Store(false)

		event := entity.ServoEvent{
			ID:        id,
			Source:    source,
			Duration:  duration,
			StartedAt: time.Now(),
		}

		t.log.WithFields(logrus.Fields{
			"pulse_id": id,
			"source":   source,
		}).Info("Servo pulse started")

		if err := t.actuator.Pulse(t.ctx, duration); err != nil {
			event.Error = err.Error()
			t.log.WithFields(logrus.Fields{
				"pulse_id": id,
				"error":    err.Error(),
			}).Error("Servo pulse failed")
		}
		event.FinishedAt = time.Now()

		t.mu.Lock()
		listeners := append([]Listener(nil), t.listeners...)
		t.mu.Unlock()

		for _, l := range listeners {
			l(event)
		}
	}()

	return id, nil
}
