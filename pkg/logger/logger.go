package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)

	// With 创建子 Logger
	With(fields ...zap.Field) Logger
	// Sync 刷新缓冲区
	Sync() error
	// SetLevel 动态调整级别
	SetLevel(level Level)
	// Level 获取当前级别
	Level() Level
}

// logger 日志实现
type logger struct {
	zap   *zap.Logger
	level zap.AtomicLevel
}

// New 创建 Logger（使用 Config）
func New(config *Config) (Logger, error) {
	if config == nil {
		config = &Config{}
	}
	config.setDefaults()

	encoder := buildEncoder(config)

	writers, err := buildWriters(config)
	if err != nil {
		return nil, err
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("no output configured")
	}

	level := zap.NewAtomicLevelAt(config.Level.toZapLevel())
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)

	opts := []zap.Option{}
	if config.EnableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if config.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &logger{
		zap:   zap.New(core, opts...),
		level: level,
	}, nil
}

// NewWithOptions 创建 Logger（使用 Options 模式）
func NewWithOptions(opts ...Option) (Logger, error) {
	config := &Config{}
	for _, opt := range opts {
		opt(config)
	}
	return New(config)
}

// NewProduction 创建生产环境 Logger
func NewProduction() (Logger, error) {
	return NewWithOptions(
		WithLevel(InfoLevel),
		WithFormat(JSONFormat),
		WithConsoleOutput(),
		WithStacktrace(true),
	)
}

// NewDevelopment 创建开发环境 Logger
func NewDevelopment() (Logger, error) {
	return NewWithOptions(
		WithLevel(DebugLevel),
		WithFormat(ConsoleFormat),
		WithConsoleOutput(),
		WithCaller(true),
	)
}

// Default 创建默认 Logger（开发环境配置）
func Default() Logger {
	l, _ := NewDevelopment()
	return l
}

// Nop 创建不输出任何内容的 Logger
func Nop() Logger {
	return &logger{
		zap:   zap.NewNop(),
		level: zap.NewAtomicLevel(),
	}
}

// buildEncoder 创建 Encoder
func buildEncoder(config *Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if config.Format == ConsoleFormat {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// buildWriters 创建输出
func buildWriters(config *Config) ([]zapcore.WriteSyncer, error) {
	var writers []zapcore.WriteSyncer

	if config.Console {
		writers = append(writers, zapcore.Lock(os.Stdout))
	}

	if config.Rotate != nil {
		config.Rotate.setDefaults()
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.Rotate.Filename,
			MaxSize:    config.Rotate.MaxSize,
			MaxAge:     config.Rotate.MaxAge,
			MaxBackups: config.Rotate.MaxBackups,
			Compress:   config.Rotate.Compress,
		}))
	} else if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, zapcore.Lock(f))
	}

	return writers, nil
}

func (l *logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }
func (l *logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

// With 创建子 Logger
func (l *logger) With(fields ...zap.Field) Logger {
	return &logger{
		zap:   l.zap.With(fields...),
		level: l.level,
	}
}

// Sync 刷新缓冲区
func (l *logger) Sync() error {
	return l.zap.Sync()
}

// SetLevel 动态调整级别
func (l *logger) SetLevel(level Level) {
	l.level.SetLevel(level.toZapLevel())
}

// Level 获取当前级别
func (l *logger) Level() Level {
	return Level(l.level.Level())
}
