package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger

// Init configures the global logger. When logPath is empty, logs go to
// stdout; otherwise they are written to the file with rotation.
func Init(logPath string) error {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if logPath == "" {
		sink = zapcore.AddSync(os.Stdout)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		sink,
		zap.NewAtomicLevelAt(zap.DebugLevel),
	)

	log = zap.New(core)
	zap.ReplaceGlobals(log)
	return nil
}

func Info(msg string, fields ...zap.Field) {
	if log != nil {
		log.Info(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, fields...)
	}
}

func Debug(msg string, fields ...zap.Field) {
	if log != nil {
		log.Debug(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if log != nil {
		log.Warn(msg, fields...)
	}
}

// Sync flushes any buffered log entries.
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}
