package logging

import (
	"fmt"
	"log/slog"

	"go.uber.org/zap"
)

// NewSlogAppender adapts a slog logger. Records below the slog handler's own
// level are dropped by slog.
func NewSlogAppender(logger *slog.Logger) Logger {
	return &slogAppender{logger: logger}
}

type slogAppender struct {
	logger *slog.Logger
}

func (a *slogAppender) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAppender) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAppender) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAppender) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }

// NewZapAppender adapts a zap logger through its sugared key/value API.
func NewZapAppender(logger *zap.Logger) Logger {
	return &zapAppender{sugar: logger.Sugar()}
}

type zapAppender struct {
	sugar *zap.SugaredLogger
}

func (a *zapAppender) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *zapAppender) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
func (a *zapAppender) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *zapAppender) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }

// ConsoleModule is the module served under the console logging id. Loading it
// and asking for an appender yields a human-readable development console
// logger at debug level.
type ConsoleModule struct {
	// Build overrides the zap constructor, mainly for tests.
	Build func(opts ...zap.Option) (*zap.Logger, error)
}

// NewAppender builds the console appender.
func (m ConsoleModule) NewAppender() (Logger, error) {
	build := m.Build
	if build == nil {
		build = zap.NewDevelopment
	}

	logger, err := build()
	if err != nil {
		return nil, fmt.Errorf("failed to build console appender: %w", err)
	}
	return NewZapAppender(logger), nil
}
