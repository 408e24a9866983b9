package servo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	CommandActive byte = 'f'
	CommandHome   byte = 'h'

	DefaultBaudRate      = 9600
	DefaultPulseDuration = 2 * time.Second
	DefaultReadTimeout   = time.Second
)

var ErrNotConnected = errors.New("servo port not connected")

type IServo interface {
	Pulse(ctx context.Context, duration time.Duration) error
	Home() error
	Available() bool
	Close() error
}

type Config struct {
	Port          string
	BaudRate      int
	PulseDuration time.Duration
	ReadTimeout   time.Duration
}

type servo struct {
	mu       sync.Mutex
	port     io.WriteCloser
	name     string
	duration time.Duration
	log      *logrus.Logger
	closed   bool
}

func Open(cfg Config, log *logrus.Logger) (IServo, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port name is empty")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Port, err)
	}

	log.WithFields(logrus.Fields{
		"port": cfg.Port,
		"baud": cfg.BaudRate,
	}).Info("Serial port opened")

	return park(NewWithPort(port, cfg.Port, cfg.PulseDuration, log), log), nil
}

// park sends the servo home once so it starts from a known position.
func park(s IServo, log *logrus.Logger) IServo {
	if err := s.Home(); err != nil {
		log.WithError(err).Warn("Failed to home servo")
	}
	return s
}

func NewWithPort(port io.WriteCloser, name string, duration time.Duration, log *logrus.Logger) IServo {
	if duration <= 0 {
		duration = DefaultPulseDuration
	}
	return &servo{
		port:     port,
		name:     name,
		duration: duration,
		log:      log,
	}
}

// Pulse moves the servo to the active position, waits, then returns it home.
// Home is written even when ctx is cancelled mid-wait.
func (s *servo) Pulse(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		duration = s.duration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotConnected
	}

	s.log.WithField("port", s.name).Info("Moving servo to active position")
	if err := s.write(CommandActive); err != nil {
		return err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	s.log.WithField("port", s.name).Info("Returning servo to home position")
	if err := s.write(CommandHome); err != nil {
		return err
	}

	return waitErr
}

func (s *servo) Home() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotConnected
	}
	return s.write(CommandHome)
}

func (s *servo) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *servo) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func (s *servo) write(cmd byte) error {
	if _, err := s.port.Write([]byte{cmd}); err != nil {
		s.log.WithFields(logrus.Fields{
			"port":    s.name,
			"command": string(cmd),
			"error":   err.Error(),
		}).Error("Failed to write servo command")
		return fmt.Errorf("failed to write %q to %s: %w", cmd, s.name, err)
	}
	return nil
}

func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
