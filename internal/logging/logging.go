package logging

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger writing to stderr. Production uses the JSON
// encoder, anything else the console encoder.
func New(level string, production bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	config := zap.NewDevelopmentConfig()
	if production {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Sentry reports errors to Sentry when a DSN is configured. The zero
// value and a nil pointer are both safe no-ops.
type Sentry struct {
	enabled bool
}

// SetupSentry initializes the Sentry SDK. An empty DSN disables reporting.
func SetupSentry(dsn, environment, release string) (*Sentry, error) {
	if dsn == "" {
		return &Sentry{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return &Sentry{}, fmt.Errorf("initializing sentry: %w", err)
	}
	return &Sentry{enabled: true}, nil
}

// Capture sends err to Sentry, tagged with the ticker being analyzed.
func (s *Sentry) Capture(err error, ticker string) {
	if s == nil || !s.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if ticker != "" {
			scope.SetTag("ticker", ticker)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be delivered.
func (s *Sentry) Flush() {
	if s == nil || !s.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
