package logger

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the Logger interface on a zap SugaredLogger
type ZapLogger struct {
	sugar *zap.SugaredLogger
	dump  bool
}

func newZapLogger(cfg Config) *ZapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.MessageKey = "message"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timestampFormat)

	var encoder zapcore.Encoder
	if cfg.Format == logFormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(textTimestamp)
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(cfg.Output), ZapLevel(cfg.Verbosity))
	return &ZapLogger{
		sugar: zap.New(core).Sugar(),
		dump:  cfg.Verbosity >= 5,
	}
}

// ZapLevel maps a CLI verbosity to a zap level.
func ZapLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity >= 4:
		return zapcore.DebugLevel
	case verbosity == 3:
		return zapcore.InfoLevel
	case verbosity == 2:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

func (l *ZapLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *ZapLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *ZapLogger) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l *ZapLogger) Error(args ...interface{}) { l.sugar.Error(args...) }
func (l *ZapLogger) Fatal(args ...interface{}) { l.sugar.Fatal(args...) }

func (l *ZapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *ZapLogger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }

// Dump logs a spew dump of v when payload dumps are enabled
func (l *ZapLogger) Dump(label string, v interface{}) {
	if !l.dump {
		return
	}
	l.sugar.Debug(label + "\n" + spew.Sdump(v))
}

// WithFields adds structured fields to the logger
func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &ZapLogger{sugar: l.sugar.With(kv...), dump: l.dump}
}

// WithContext adds the well-known context values as fields
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(contextFields(ctx))
}

// WithComponent adds component name to the logger
func (l *ZapLogger) WithComponent(component string) Logger {
	return &ZapLogger{sugar: l.sugar.With("component", component), dump: l.dump}
}
