package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type _LoggerImp struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

var l *_LoggerImp

// Debugf logger
func Debugf(format string, args ...interface{}) {
	if l == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Debugf(format, args...)
}

// Infof logger
func Infof(format string, args ...interface{}) {
	if l == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Infof(format, args...)
}

// Warnf logger
func Warnf(format string, args ...interface{}) {
	if l == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Warnf(format, args...)
}

// Errorf logger
func Errorf(format string, args ...interface{}) {
	if l == nil {
		debug.PrintStack()
		fmt.Printf(format+"\n", args...)
		return
	}
	l.sugar.Errorf(format, args...)
}

// Debug logger
func Debug(msg string, fields ...zapcore.Field) {
	if l == nil {
		return
	}
	l.logger.Debug(msg, fields...)
}

// Info logger
func Info(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fieldsString(fields))
		return
	}
	l.logger.Info(msg, fields...)
}

// Warn logger
func Warn(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fieldsString(fields))
		return
	}
	l.logger.Warn(msg, fields...)
}

// Error logger
func Error(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fieldsString(fields))
		return
	}
	l.logger.Error(msg, fields...)
}

// Fatal logger, log message then call os.Exit(1).
func Fatal(msg string, fields ...zapcore.Field) {
	if l == nil {
		fmt.Println(msg, fieldsString(fields))
		os.Exit(1)
	}
	l.logger.Fatal(msg, fields...)
}

// Sync flushes buffered entries.
func Sync() {
	if l != nil {
		_ = l.logger.Sync()
	}
}

// Init logger initialize
func Init(serverType string, config *viper.Viper) {
	l = &_LoggerImp{}
	l.logger = newLogger(serverType, config)
	l.sugar = l.logger.Sugar()
	l.logger.Info("initialize logger", zap.String("server", serverType))
}

// Use installs an already built zap logger, used by tests and embedders.
func Use(z *zap.Logger) {
	if z == nil {
		l = nil
		return
	}
	z = z.WithOptions(zap.AddCallerSkip(1))
	l = &_LoggerImp{logger: z, sugar: z.Sugar()}
}

func fieldsString(fields []zapcore.Field) string {
	if len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return fmt.Sprint(enc.Fields)
}

func newLogger(serverType string, config *viper.Viper) *zap.Logger {
	level := config.GetString("logger.level")
	fileDir := config.GetString("logger.dir")
	rotation := config.GetBool("logger.rotation")
	stdout := config.GetBool("logger.stdout")

	zapLevel := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		fmt.Println("Logger level invalid, must be one of: DEBUG, INFO, WARN, or ERROR")
	}

	consoleLogger := newJSONLogger(os.Stdout, zapLevel)
	if fileDir == "" {
		return consoleLogger
	}

	file := filepath.Join(fileDir, serverType+".log")
	var fileLogger *zap.Logger
	if rotation {
		fileLogger = newRotatingJSONFileLogger(config, consoleLogger, file, zapLevel)
	} else {
		fileLogger = newJSONFileLogger(consoleLogger, file, zapLevel)
	}
	if fileLogger == nil {
		return consoleLogger
	}
	if stdout {
		return newMultiLogger(consoleLogger, fileLogger)
	}
	return fileLogger
}

func newJSONFileLogger(consoleLogger *zap.Logger, fileName string, level zapcore.Level) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		consoleLogger.Error("Could not create log directory", zap.Error(err))
		return nil
	}
	output, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		consoleLogger.Error("Could not create log file", zap.Error(err))
		return nil
	}
	return newJSONLogger(output, level)
}

func newRotatingJSONFileLogger(config *viper.Viper, consoleLogger *zap.Logger, fileName string, level zapcore.Level) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		consoleLogger.Error("Could not create log directory", zap.Error(err))
		return nil
	}

	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    config.GetInt("logger.maxsize"),
		MaxAge:     config.GetInt("logger.maxage"),
		MaxBackups: config.GetInt("logger.maxbackups"),
		LocalTime:  config.GetBool("logger.localtime"),
		Compress:   config.GetBool("logger.compress"),
	})

	core := zapcore.NewCore(newJSONEncoder(), writeSyncer, level)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel), zap.AddCaller(), zap.AddCallerSkip(1))
}

func newMultiLogger(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(loggers))
	for _, logger := range loggers {
		cores = append(cores, logger.Core())
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel), zap.AddCaller(), zap.AddCallerSkip(1))
}

func newJSONLogger(output *os.File, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(newJSONEncoder(), zapcore.Lock(output), level)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel), zap.AddCaller(), zap.AddCallerSkip(1))
}

func newJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
}
