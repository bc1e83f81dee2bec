package logger

import (
	"go.uber.org/zap"

	"github.com/carlfranklin/avnrepo/pkg/environment"
	"github.com/carlfranklin/avnrepo/pkg/errors"
)

type Logger interface {
	With(label string) Logger

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Panicf(format string, args ...any)

	Debug(err error)
	Info(err error)
	Warn(err error)
	Error(err error)
	Panic(err error)

	Sync() error
}

func New(env environment.Env) (Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case environment.Production:
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, errors.WrapFail(err, "init zap")
	}

	return FromZap(logger), nil
}

// FromZap adapts an already configured zap logger.
func FromZap(z *zap.Logger) Logger {
	return &wrapper{base: z.Sugar()}
}

type wrapper struct {
	base *zap.SugaredLogger
}

func (w *wrapper) With(label string) Logger {
	return &wrapper{w.base.Named(label)}
}

func (w *wrapper) Sync() error {
	return w.base.Sync()
}

// nil errors are dropped, so that callers may log WrapFail results unconditionally
func (w *wrapper) Debug(err error) {
	if err != nil {
		w.base.Debugf("%s", err)
	}
}

func (w *wrapper) Info(err error) {
	if err != nil {
		w.base.Infof("%s", err)
	}
}

func (w *wrapper) Warn(err error) {
	if err != nil {
		w.base.Warnf("%s", err)
	}
}

func (w *wrapper) Error(err error) {
	if err != nil {
		w.base.Errorf("%s", err)
	}
}

func (w *wrapper) Panic(err error) {
	if err != nil {
		_ = w.base.Sync()
		w.base.Panicf("%s", err)
	}
}

func (w *wrapper) Debugf(format string, args ...any) {
	w.base.Debugf(format, args...)
}

func (w *wrapper) Infof(format string, args ...any) {
	w.base.Infof(format, args...)
}

func (w *wrapper) Warnf(format string, args ...any) {
	w.base.Warnf(format, args...)
}

func (w *wrapper) Errorf(format string, args ...any) {
	w.base.Errorf(format, args...)
}

func (w *wrapper) Panicf(format string, args ...any) {
	_ = w.base.Sync()
	w.base.Panicf(format, args...)
}
