package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// instanceID tags every line so replicas can be told apart. Cloud Run sets
// K_REVISION; a random id is used when nothing else is available.
var instanceID = sync.OnceValue(func() string {
	for _, key := range []string{"INSTANCE_ID", "K_REVISION", "HOSTNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
})

func GetInstanceID() string {
	return instanceID()
}

type Config struct {
	Level  slog.Level
	Format string // "json" or "text"

	// Output defaults to os.Stdout.
	Output io.Writer
}

type contextKey string

const (
	ContextKeyInvocationID contextKey = "invocation_id"
	ContextKeyReportID     contextKey = "report_id"
	// ContextKeyTrigger names the adapter that started the invocation.
	ContextKeyTrigger   contextKey = "trigger"
	ContextKeyOperation contextKey = "operation"
)

// contextKeys are copied onto log lines by WithContext, in this order.
var contextKeys = []contextKey{
	ContextKeyInvocationID,
	ContextKeyReportID,
	ContextKeyTrigger,
	ContextKeyOperation,
}

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New builds a tint console logger, or a JSON logger whose level field is
// named "severity" so Cloud Logging picks it up.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       config.Level,
			AddSource:   true,
			ReplaceAttr: cloudLoggingAttr,
		})
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      config.Level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
	}

	return &Logger{Logger: slog.New(handler).With(slog.String("instance_id", GetInstanceID()))}
}

func cloudLoggingAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
	case slog.LevelKey:
		return slog.String("severity", a.Value.String())
	}
	return a
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Config{Level: slog.LevelError + 1, Output: io.Discard})
}

// FromConfig maps LOG_LEVEL / LOG_FORMAT to a Config. Levels use slog's text
// form ("debug", "WARN", "info+2"); anything unparsable means info.
// APP_ENV=production forces JSON.
func FromConfig(logLevel, logFormat string) Config {
	config := Config{Level: slog.LevelInfo, Format: "text"}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(logLevel))); err == nil {
		config.Level = level
	}
	if logFormat != "" {
		config.Format = logFormat
	}
	if os.Getenv("APP_ENV") == "production" {
		config.Format = "json"
	}

	return config
}

// WithContext copies the invocation attributes carried by ctx onto the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			logger = logger.With(slog.String(string(key), v))
		}
	}
	return &Logger{Logger: logger}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(slog.String("component", component))}
}

// LogOperation runs fn and logs its outcome and duration. Start is only
// logged at debug.
func (l *Logger) LogOperation(ctx context.Context, operation string, fn func() error) error {
	log := l.WithContext(ctx).With(slog.String("operation", operation))
	log.Debug("operation started")

	start := time.Now()
	err := fn()
	elapsed := slog.Duration("duration", time.Since(start))

	if err != nil {
		log.Error("operation failed", elapsed, slog.String("error", err.Error()))
		return err
	}
	log.Info("operation completed", elapsed)
	return nil
}

// RedactToken shortens a push token for log output.
func RedactToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
