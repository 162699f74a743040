package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option ajusta o logger antes do build.
type Option func(*options)

type options struct {
	file       string
	maxSizeMB  int
	maxBackups int
	level      string
}

// WithFile espelha os logs num arquivo JSON com rotação (lumberjack).
func WithFile(path string, maxSizeMB, maxBackups int) Option {
	return func(o *options) {
		o.file = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
	}
}

// WithLevel sobrescreve o nível padrão ("debug", "info", "warn", ...).
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

func New(serviceName string, env string, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	// sempre garantir que serviço e env entrem como campos padrão
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if o.level != "" {
		lvl, err := zap.ParseAtomicLevel(o.level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}

	var buildOpts []zap.Option
	if o.file != "" {
		rotate := zapcore.AddSync(&lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			Compress:   true,
		})
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(enc), rotate, cfg.Level)
		buildOpts = append(buildOpts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}
	// Fields depois do WrapCore para os campos chegarem ao arquivo também
	buildOpts = append(buildOpts, zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", env),
	))

	l, err := cfg.Build(buildOpts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}
