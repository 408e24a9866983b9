package config

import (
	"FaceTrigger/internal/api/detection"
	detectionHandler "FaceTrigger/internal/api/detection/handler"
	detectionService "FaceTrigger/internal/api/detection/service"
	"FaceTrigger/internal/middleware"
	"FaceTrigger/internal/publisher"
	"FaceTrigger/internal/state"
	"FaceTrigger/internal/trigger"
	"FaceTrigger/internal/vision"
	"FaceTrigger/pkg/metrics"
	"FaceTrigger/pkg/redis"
	"FaceTrigger/pkg/servo"
	"FaceTrigger/pkg/utils"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	log         *logrus.Logger
	env         *Env
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	state       *state.Store
	servo       servo.IServo
	trigger     *trigger.Trigger
	metrics     *metrics.Metrics
	redisServer redis.IRedis
	publisher   *publisher.Publisher

	source   vision.FrameSource
	detector vision.Detector
	loop     *vision.Loop

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	started  bool
	stopped  bool
	shutdown sync.Once
}

var ErrServerStopped = errors.New("server already shut down")

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.env == nil {
		return nil, fmt.Errorf("environment is required")
	}

	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, middleware.Config{})
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.state == nil {
		server.state = state.New()
	}
	if server.metrics == nil {
		server.metrics = metrics.New()
	}
	if server.servo == nil {
		server.servo = servo.NewNoop(server.log)
	}

	server.ctx, server.cancel = context.WithCancel(context.Background())

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithEnv(env *Env) ServerOption {
	return func(s *Server) error {
		if env == nil {
			return fmt.Errorf("environment is nil")
		}
		s.env = env
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		cfg := middleware.Config{}
		if s.env != nil {
			cfg.RequestsPerSecond = s.env.RateLimitRPS
			cfg.Burst = s.env.RateLimitBurst
		}
		s.middleware = middleware.New(s.log, cfg)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithState(store *state.Store) ServerOption {
	return func(s *Server) error {
		s.state = store
		return nil
	}
}

func WithServo(sv servo.IServo) ServerOption {
	return func(s *Server) error {
		s.servo = sv
		return nil
	}
}

// WithVision attaches the camera and detector. Without it the server runs
// in degraded mode and /detect_face keeps reporting false.
func WithVision(source vision.FrameSource, detector vision.Detector) ServerOption {
	return func(s *Server) error {
		if source == nil || detector == nil {
			return fmt.Errorf("vision requires both a frame source and a detector")
		}
		s.source = source
		s.detector = detector
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.trigger = trigger.New(s.ctx, s.log, s.servo,
		trigger.WithDuration(s.env.PulseDuration),
		trigger.WithUtils(s.utils),
		trigger.WithListener(s.metrics.PulseFinished),
	)

	if s.redisServer != nil {
		s.publisher = publisher.New(s.log, s.redisServer)
		s.trigger.AddListener(s.publisher.ServoListener())
	}

	var loopStatus detectionService.LoopStatus
	if s.source != nil && s.detector != nil {
		s.loop = vision.NewLoop(s.log, s.source, s.detector, s.state, s.trigger, s.metrics, vision.Config{
			MaxReadErrors: s.env.CameraMaxReadErrors,
			FrameInterval: s.env.FrameInterval,
		})
		loopStatus = s.loop
	}

	// Detection
	detectionServices := detectionService.NewDetectionService(
		s.log,
		s.state,
		s.trigger,
		s.servo,
		loopStatus,
		s.metrics,
		detectionService.Hardware{
			HostedMode:    s.env.HostedMode,
			Detector:      detection.DetectorBackend(s.env.DetectorBackend),
			PulseDuration: s.env.PulseDuration,
		},
	)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices)

	s.engine.Use(cors.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	detectionHandlers.StartRoot(s.engine)
	detectionHandlers.Start(s.engine.Group("/api/v1"))
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) State() *state.Store {
	return s.state
}

// Run starts the vision loop and the redis mirror, then blocks serving HTTP.
func (s *Server) Run() error {
	if s.trigger == nil {
		return fmt.Errorf("handlers are not registered")
	}

	if err := s.startBackground(); err != nil {
		return err
	}

	addr := s.env.ListenAddr()
	s.log.WithField("addr", addr).Info("HTTP server listening")

	return s.engine.Listen(addr)
}

// startBackground starts the vision loop and the redis mirror unless
// Shutdown already ran.
func (s *Server) startBackground() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerStopped
	}

	if s.loop != nil {
		s.started = true
		s.loop.Start(s.ctx)
		go s.watchLoop()
	} else {
		s.log.Warn("Camera not available, face detection disabled")
	}

	if s.publisher != nil {
		go s.publisher.Run(s.ctx, s.state)
	}

	return nil
}

func (s *Server) watchLoop() {
	select {
	case <-s.ctx.Done():
	case <-s.loop.Done():
		if err := s.loop.Err(); err != nil {
			s.log.WithError(err).Error("Vision loop stopped")
		}
	}
}

// Shutdown stops the HTTP server and the vision loop, lets any running pulse
// return the servo home, then releases the serial port and redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	s.shutdown.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.cancel()
		s.mu.Unlock()

		if err := s.engine.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}

		if s.loop != nil && started {
			select {
			case <-s.loop.Done():
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("vision loop did not stop: %w", ctx.Err()))
			}
		} else {
			if s.source != nil {
				if err := s.source.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close camera: %w", err))
				}
			}
			if s.detector != nil {
				if err := s.detector.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close detector: %w", err))
				}
			}
		}

		if s.trigger != nil {
			s.trigger.Wait()
		}

		if err := s.servo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close servo: %w", err))
		}

		if s.redisServer != nil {
			if err := s.redisServer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
	})

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
