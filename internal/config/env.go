package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Env struct {
	AppHost string `validate:"required"`
	AppPort int    `validate:"min=1,max=65535"`
	AppEnv  string

	// HostedMode skips the camera and servo, so detector settings are not
	// required.
	HostedMode bool

	CameraDevice        int           `validate:"min=0"`
	CameraMaxReadErrors int           `validate:"min=1"`
	FrameInterval       time.Duration `validate:"min=0s"`

	DetectorBackend        string  `validate:"oneof=cascade dnn remote"`
	CascadePath            string  `validate:"required_if=DetectorBackend cascade HostedMode false"`
	DNNModelPath           string  `validate:"required_if=DetectorBackend dnn HostedMode false"`
	DNNConfigPath          string  `validate:"required_if=DetectorBackend dnn HostedMode false"`
	MinDetectionConfidence float64 `validate:"min=0,max=1"`
	FaceDetectionURL       string  `validate:"required_if=DetectorBackend remote HostedMode false,omitempty,url"`
	RemoteFrameMaxWidth    int     `validate:"min=0"`

	SerialPort    string
	SerialBaud    int           `validate:"min=1"`
	PulseDuration time.Duration `validate:"min=100ms,max=10s"`

	RedisAddress  string
	RedisPassword string
	RedisDB       int `validate:"min=0"`

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"min=1"`
}

func (e *Env) ListenAddr() string {
	return fmt.Sprintf("%s:%d", e.AppHost, e.AppPort)
}

func DefaultSerialPort() string {
	if runtime.GOOS == "windows" {
		return "COM6"
	}
	return "/dev/ttyUSB0"
}

// LoadDotEnv loads .env files when present. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadEnv reads configuration through getenv, applies defaults and validates.
func LoadEnv(getenv func(string) string, validate *validator.Validate) (*Env, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	p := &envParser{getenv: getenv}

	env := &Env{
		AppHost: p.str("APP_HOST", "127.0.0.1"),
		AppPort: p.int("APP_PORT", 5000),
		AppEnv:  p.str("APP_ENV", "development"),

		HostedMode: p.bool("HOSTED_MODE", false),

		CameraDevice:        p.int("CAMERA_DEVICE", 0),
		CameraMaxReadErrors: p.int("CAMERA_MAX_READ_ERRORS", 1),
		FrameInterval:       p.duration("FRAME_INTERVAL", 5*time.Millisecond),

		DetectorBackend:        strings.ToLower(p.str("DETECTOR_BACKEND", "cascade")),
		CascadePath:            p.str("CASCADE_PATH", "data/haarcascade_frontalface_default.xml"),
		DNNModelPath:           p.str("DNN_MODEL_PATH", ""),
		DNNConfigPath:          p.str("DNN_CONFIG_PATH", ""),
		MinDetectionConfidence: p.float("MIN_DETECTION_CONFIDENCE", 0.5),
		FaceDetectionURL:       p.str("AI_FACE_DETECTION_URL", "ws://localhost:8000/api/v1/face/ws"),
		RemoteFrameMaxWidth:    p.int("REMOTE_FRAME_MAX_WIDTH", 640),

		SerialPort:    p.str("SERIAL_PORT", DefaultSerialPort()),
		SerialBaud:    p.int("SERIAL_BAUD", 9600),
		PulseDuration: p.duration("SERVO_PULSE_DURATION", 2*time.Second),

		RedisAddress:  p.str("REDIS_ADDRESS", ""),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),

		RateLimitRPS:   p.float("RATE_LIMIT_RPS", 50),
		RateLimitBurst: p.int("RATE_LIMIT_BURST", 100),
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	if validate == nil {
		validate = NewValidator()
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return env, nil
}

type envParser struct {
	getenv func(string) string
	errs   []error
}

func (p *envParser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *envParser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *envParser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *envParser) bool(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
