package servo

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type noop struct {
	log *logrus.Logger
}

// NewNoop returns a servo that accepts every command and does nothing.
// Used in hosted mode and when the serial port is missing.
func NewNoop(log *logrus.Logger) IServo {
	return &noop{log: log}
}

func (n *noop) Pulse(ctx context.Context, duration time.Duration) error {
	n.log.Debug("Servo not attached, skipping pulse")
	return nil
}

func (n *noop) Home() error {
	return nil
}

func (n *noop) Available() bool {
	return false
}

func (n *noop) Close() error {
	return nil
}
