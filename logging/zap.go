package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerOptions zap 日志选项
type ZapLoggerOptions struct {
	// Encoding 为 json 或 console
	Encoding    string
	Development bool
	// OutputPaths 可以包含 stdout、stderr 或文件路径
	OutputPaths      []string
	ErrorOutputPaths []string
}

// DefaultZapOptions 返回生产环境的默认配置
func DefaultZapOptions() ZapLoggerOptions {
	return ZapLoggerOptions{
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// ZapLoggerProvider 基于 zap 的日志提供者
type ZapLoggerProvider struct {
	base  *zap.Logger
	level zap.AtomicLevel
	mu    sync.RWMutex
	min   LogLevel
}

// NewZapLoggerProvider 按选项构建 zap.Logger。文件输出无法打开时回退到 stdout。
func NewZapLoggerProvider(options ZapLoggerOptions) (*ZapLoggerProvider, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewProductionConfig()
	if options.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	if options.Encoding != "" {
		cfg.Encoding = options.Encoding
	}
	if len(options.OutputPaths) > 0 {
		cfg.OutputPaths = options.OutputPaths
	}
	if len(options.ErrorOutputPaths) > 0 {
		cfg.ErrorOutputPaths = options.ErrorOutputPaths
	}
	cfg.DisableStacktrace = !options.Development

	base, err := cfg.Build(zap.AddCallerSkip(3))
	if err != nil {
		cfg.OutputPaths = []string{"stdout"}
		fallback, ferr := cfg.Build(zap.AddCallerSkip(3))
		if ferr != nil {
			return nil, fmt.Errorf("logging: build zap logger: %w", err)
		}
		base = fallback
	}
	return &ZapLoggerProvider{base: base, level: level, min: LogLevelInfo}, nil
}

// NewZapLoggerProviderFromLogger 包装已有的 zap.Logger，级别过滤由本提供者完成。
func NewZapLoggerProviderFromLogger(logger *zap.Logger) *ZapLoggerProvider {
	return &ZapLoggerProvider{
		base:  logger,
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
		min:   LogLevelTrace,
	}
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	l := p.base
	if category != "" {
		l = l.Named(category)
	}
	return &zapLogger{provider: p, logger: l}
}

func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.min = level
	p.level.SetLevel(toZapLevel(level))
}

func (p *ZapLoggerProvider) minimum() LogLevel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.min
}

// Close 刷新缓冲。同步 stdout 在部分平台上返回无害错误，这里忽略。
func (p *ZapLoggerProvider) Close() error {
	_ = p.base.Sync()
	return nil
}

// toZapLevel zap 没有 Trace，映射到 Debug
func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.FatalLevel + 1
	}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

type zapLogger struct {
	provider *ZapLoggerProvider
	logger   *zap.Logger
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field) { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field) { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.Log(LogLevelFatal, msg, fields...) }

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.provider.minimum() {
		return
	}
	zf := toZapFields(fields)
	if level == LogLevelTrace {
		zf = append(zf, zap.Bool("trace", true))
	}
	switch level {
	case LogLevelTrace, LogLevelDebug:
		l.logger.Debug(msg, zf...)
	case LogLevelInfo:
		l.logger.Info(msg, zf...)
	case LogLevelWarn:
		l.logger.Warn(msg, zf...)
	case LogLevelError:
		l.logger.Error(msg, zf...)
	case LogLevelFatal:
		l.logger.Fatal(msg, zf...)
	}
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{provider: l.provider, logger: l.logger.With(toZapFields(fields)...)}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{provider: l.provider, logger: l.provider.base.Named(category)}
}
