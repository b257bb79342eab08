package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements Logger with go.uber.org/zap.
type ZapLogger struct {
	logger *zap.Logger
	level  LogLevel
}

// NewZapLogger creates a zap-backed logger writing to config.Output.
func NewZapLogger(config *LoggerConfig) (*ZapLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if config.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(config.Level))
	opts := []zap.Option{}
	if config.AddSource {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	logger := zap.New(core, opts...)
	if config.Component != "" {
		logger = logger.With(zap.String("component", config.Component))
	}

	return &ZapLogger{logger: logger, level: config.Level}, nil
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapFields(err error, fields []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)/2+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out = append(out, zap.Any(key, fields[i+1]))
		}
	}
	return out
}

func (z *ZapLogger) Debug(_ context.Context, msg string, fields ...interface{}) {
	z.logger.Debug(msg, zapFields(nil, fields)...)
}

func (z *ZapLogger) Info(_ context.Context, msg string, fields ...interface{}) {
	z.logger.Info(msg, zapFields(nil, fields)...)
}

func (z *ZapLogger) Warn(_ context.Context, err error, msg string, fields ...interface{}) {
	z.logger.Warn(msg, zapFields(err, fields)...)
}

func (z *ZapLogger) Error(_ context.Context, err error, msg string, fields ...interface{}) {
	z.logger.Error(msg, zapFields(err, fields)...)
}

// Fatal logs at error level; zap's Fatal would exit the test binary.
func (z *ZapLogger) Fatal(_ context.Context, err error, msg string, fields ...interface{}) {
	z.logger.Error(msg, zapFields(err, fields)...)
}

func (z *ZapLogger) With(fields ...interface{}) Logger {
	return &ZapLogger{logger: z.logger.With(zapFields(nil, fields)...), level: z.level}
}

func (z *ZapLogger) WithComponent(component string) Logger {
	return &ZapLogger{logger: z.logger.With(zap.String("component", component)), level: z.level}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
