package log

import (
	contextPkg "FaceTrigger/pkg/context"
	"fmt"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const (
	RequestIDKey = "request_id"

	DefaultLogDir = "./storage/logs"
)

type Fields = logrus.Fields

type Options struct {
	Level logrus.Level
	// Dir holds the rotated daily file. Empty disables file output.
	Dir string
	Out io.Writer
}

// OptionsFromEnv reads LOG_LEVEL and LOG_DIR. APP_ENV=test keeps logs off disk.
func OptionsFromEnv() Options {
	opts := Options{
		Level: ParseLevel(os.Getenv("LOG_LEVEL")),
		Dir:   os.Getenv("LOG_DIR"),
		Out:   os.Stderr,
	}
	if opts.Dir == "" {
		opts.Dir = DefaultLogDir
	}
	if os.Getenv("APP_ENV") == "test" {
		opts.Dir = ""
	}
	return opts
}

// New builds an independent logger. Most callers want NewLogger.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(opts.Level)
	l.SetFormatter(&formatter.Formatter{
		NoColors:              false,
		TimestampFormat:       "02 Jan 06 - 15:04:05",
		HideKeys:              false,
		CallerFirst:           true,
		CustomCallerFormatter: callerFormatter,
	})

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	if opts.Dir != "" {
		writers = append(writers, dailyFile(opts.Dir, time.Now()))
	}

	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

// NewLogger returns the process-wide logger, built from the environment on
// first use.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = New(OptionsFromEnv())
	})
	return logger
}

func dailyFile(dir string, day time.Time) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, fmt.Sprintf("facetrigger-%s.log", day.Format("2006-01-02"))),
		LocalTime:  true,
		Compress:   true,
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
	}
}

func callerFormatter(f *runtime.Frame) string {
	s := strings.Split(f.Function, ".")
	funcName := s[len(s)-1]
	return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
}

func ParseLevel(s string) logrus.Level {
	if s == "" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func SetLevel(s string) error {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return err
	}
	NewLogger().SetLevel(level)
	return nil
}

// ErrorWithTraceID logs msg at error level and returns the id a client can
// quote back: the request id when fields carry one, otherwise a new UUID.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	traceID, _ := fields[RequestIDKey].(string)
	if traceID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	NewLogger().WithFields(fields).Error(msg)

	return traceID
}

// WithRequestID tags base with the request id carried by ctx.
func WithRequestID(base *logrus.Logger, ctx context.Context) *logrus.Entry {
	if base == nil {
		base = NewLogger()
	}
	requestID := "unknown"
	if ctx != nil {
		requestID = contextPkg.GetRequestID(ctx)
	}
	return base.WithField(RequestIDKey, requestID)
}
