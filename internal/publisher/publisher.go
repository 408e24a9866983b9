package publisher

import (
	"FaceTrigger/internal/entity"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Sink interface {
	PublishFaceState(ctx context.Context, state entity.FaceState) error
	PublishServoEvent(ctx context.Context, event entity.ServoEvent) error
}

type Source interface {
	Subscribe(buffer int) (<-chan entity.FaceState, func())
}

// Publisher mirrors face state changes and servo events to an external sink.
// Sink failures are logged and never stop the mirror.
type Publisher struct {
	log     *logrus.Logger
	sink    Sink
	timeout time.Duration
}

func New(log *logrus.Logger, sink Sink) *Publisher {
	return &Publisher{
		log:     log,
		sink:    sink,
		timeout: 2 * time.Second,
	}
}

// Run forwards every state change from source until ctx is done.
func (p *Publisher) Run(ctx context.Context, source Source) {
	states, cancel := source.Subscribe(16)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			p.publishState(ctx, state)
		}
	}
}

func (p *Publisher) publishState(ctx context.Context, state entity.FaceState) {
	c, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sink.PublishFaceState(c, state); err != nil {
		p.log.WithFields(logrus.Fields{
			"face_detected": state.FaceDetected,
			"error":         err.Error(),
		}).Warn("Failed to mirror face state")
	}
}

// ServoListener adapts the publisher to the trigger's listener signature.
func (p *Publisher) ServoListener() func(entity.ServoEvent) {
	return func(event entity.ServoEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.sink.PublishServoEvent(ctx, event); err != nil {
			p.log.WithFields(logrus.Fields{
				"pulse_id": event.ID,
				"error":    err.Error(),
			}).Warn("Failed to mirror servo event")
		}
	}
}
