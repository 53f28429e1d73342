package logging

import (
	"os"
	"sync"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	err          error
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddZap 添加 zap 日志，构建失败的错误在 Build 时返回
func (b *LoggingBuilder) AddZap(options ...ZapLoggerOptions) *LoggingBuilder {
	opts := DefaultZapOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	p, err := NewZapLoggerProvider(opts)
	if err != nil {
		b.mu.Lock()
		if b.err == nil {
			b.err = err
		}
		b.mu.Unlock()
		return b
	}
	return b.AddProvider(p)
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	f, _ := b.TryBuild()
	return f
}

// TryBuild 构建日志工厂并返回添加提供者时出现的第一个错误，工厂本身总是可用。
func (b *LoggingBuilder) TryBuild() (LoggerFactory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory := &loggerFactory{minimumLevel: b.minimumLevel}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory, b.err
}

// NewLogger 创建一个默认的控制台 Logger，便于示例与测试使用
func NewLogger() Logger {
	return NewLoggingBuilder().AddConsole().Build().CreateLogger("beans")
}
