package logger

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"steprecorder/internal/config"
)

var (
	global atomic.Pointer[zap.Logger]
	once   sync.Once
)

// Init builds the process logger from cfg and installs it as zap's global
// logger. Standard library log output is redirected into it. Only the
// first call has any effect.
func Init(cfg config.LogConfig) *zap.Logger {
	once.Do(func() {
		l := New(cfg, zapcore.Lock(os.Stdout))
		global.Store(l)
		zap.ReplaceGlobals(l)
		zap.RedirectStdLog(l)
	})
	return Get()
}

// New builds a logger writing to console, plus a rotated JSON file when
// cfg.File is set.
func New(cfg config.LogConfig, console zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(cfg.Format), console, level)}
	if cfg.File != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(encoder("json"), file, level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	).Named("steprecorder")
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if format == "json" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// Get returns the logger installed by Init, or a development logger when
// Init has not run yet.
func Get() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("fallback")
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync() {
	if l := global.Load(); l != nil {
		_ = l.Sync()
	}
}

// ResetForTest clears the global logger so Init can run again.
func ResetForTest() {
	global.Store(nil)
	once = sync.Once{}
}
