package logging

import (
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type Logger struct {
	*otelzap.Logger
}

type LoggerOption struct {
	LogLevel    string
	Development bool
}

type Option func(o *LoggerOption)

func WithLogLevel(logLevel string) Option {
	return func(o *LoggerOption) {
		o.LogLevel = logLevel
	}
}

// WithDevelopment switches to zap's development config: console encoding and
// stack traces on warnings.
func WithDevelopment(development bool) Option {
	return func(o *LoggerOption) {
		o.Development = development
	}
}

func NewLogger(opts ...Option) (*Logger, error) {
	option := &LoggerOption{}
	for _, opt := range opts {
		opt(option)
	}

	logger, err := makeLogger(option)
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

func ParseLevel(logLevel string) zap.AtomicLevel {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "fatal":
		return zap.NewAtomicLevelAt(zap.FatalLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

func makeLogger(option *LoggerOption) (*otelzap.Logger, error) {
	level := ParseLevel(option.LogLevel)

	zapConfig := zap.NewProductionConfig()
	if option.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return otelzap.New(zapLogger,
		otelzap.WithMinLevel(level.Level()),
	), nil
}
