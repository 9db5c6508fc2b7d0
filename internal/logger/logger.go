package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceName is stamped on every log line.
const ServiceName = "healthmate"

// Output destinations accepted in LoggingConfig.Output.
const (
	OutputStdout  = "stdout"
	OutputConsole = "console"
	OutputFile    = "file"
	OutputBoth    = "both"
)

// LoggingConfig is the logger's view of config.LoggingConfig. It lives here
// so config can import logger and not the other way round.
type LoggingConfig struct {
	Level     string
	Output    string
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationIDKey
)

// New returns a JSON logger on stdout. Unknown or empty levels mean info.
func New(level string) zerolog.Logger {
	return build(os.Stdout, level)
}

// NewFromConfig returns a logger writing to the destination named by
// cfg.Output. "both" tees JSON to stdout and the rotating file.
func NewFromConfig(cfg LoggingConfig) zerolog.Logger {
	return build(writerFor(cfg), cfg.Level)
}

func writerFor(cfg LoggingConfig) io.Writer {
	file := func() io.Writer {
		return NewFileWriter(FileConfig{Path: cfg.FilePath, MaxSizeMB: cfg.MaxSizeMB, MaxFiles: cfg.MaxFiles})
	}
	switch cfg.Output {
	case OutputFile:
		return file()
	case OutputBoth:
		return zerolog.MultiLevelWriter(os.Stdout, file())
	case OutputConsole:
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	default:
		return os.Stdout
	}
}

func build(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// WithCorrelationID attaches a request correlation ID to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// FromContext returns the logger stored in ctx with its correlation_id
// field set, falling back to an info-level stdout logger.
func FromContext(ctx context.Context) zerolog.Logger {
	log, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		log = New(zerolog.LevelInfoValue)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		return log.With().Str("correlation_id", id).Logger()
	}
	return log
}

// NewCorrelationID returns a random UUID string.
func NewCorrelationID() string {
	return uuid.NewString()
}
