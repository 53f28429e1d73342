package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelInfo,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	str := string(out)
	assert.Contains(t, str, "INFO")
	assert.Contains(t, str, "[Test]")
	assert.Contains(t, str, "Hello")
	assert.Contains(t, str, "{key=val}")
	assert.True(t, strings.HasSuffix(str, "\n"))
}

func TestJsonFormatter(t *testing.T) {
	f := NewJsonFormatter()
	entry := &LogEntry{
		Time:     time.Now(),
		Level:    LogLevelWarn,
		Category: "Test",
		Message:  "Hello",
		Fields:   []Field{{Key: "key", Value: "val"}, {Key: "error", Value: errors.New("boom")}},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(out, &data))
	assert.Equal(t, "WARN", data["level"])
	assert.Equal(t, "Test", data["category"])

	fields, ok := data["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "val", fields["key"])
	assert.Equal(t, "boom", fields["error"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"trace": LogLevelTrace, "Debug": LogLevelDebug, "information": LogLevelInfo,
		"WARNING": LogLevelWarn, "error": LogLevelError, "off": LogLevelNone,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConsoleProviderRespectsMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelDebug).
		AddConsole(ConsoleLoggerOptions{Output: &buf}).
		Build()

	logger := factory.CreateLogger("di").WithFields(Field{Key: "bean", Value: "repo"})
	logger.Trace("hidden")
	logger.Debug("created", Field{Key: "scope", Value: "singleton"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "DEBUG [di] created {bean=repo, scope=singleton}")

	factory.SetMinimumLevel(LogLevelError)
	logger.Info("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestWithFieldsDoesNotShareBackingArray(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggingBuilder().AddConsole(ConsoleLoggerOptions{Output: &buf}).Build().
		CreateLogger("").WithFields(Field{Key: "a", Value: 1})

	left := base.WithFields(Field{Key: "left", Value: true})
	_ = base.WithFields(Field{Key: "right", Value: true})
	left.Info("check")

	assert.Contains(t, buf.String(), "{a=1, left=true}")
	assert.NotContains(t, buf.String(), "right")
}

func TestAsyncWriter(t *testing.T) {
	writer := &syncWriter{}
	asyncWriter := NewAsyncWriter(writer, NewTextFormatter(), 10)

	entry := &LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "Async"}
	for i := 0; i < 5; i++ {
		asyncWriter.WriteLog(entry)
	}

	// 关闭以刷新
	require.NoError(t, asyncWriter.Close())

	lines := strings.Split(strings.TrimSpace(writer.String()), "\n")
	assert.Len(t, lines, 5)

	asyncWriter.WriteLog(entry)
	assert.Len(t, strings.Split(strings.TrimSpace(writer.String()), "\n"), 5)
}

func TestZapProvider(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider := NewZapLoggerProviderFromLogger(zap.New(core))

	factory := NewLoggingBuilder().SetMinimumLevel(LogLevelDebug).AddProvider(provider).Build()
	logger := factory.CreateLogger("beans")

	logger.Trace("too low")
	logger.Info("bean created", Field{Key: "bean", Value: "repo"}, Field{Key: "error", Value: errors.New("x")})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "bean created", entry.Message)
	assert.Equal(t, "beans", entry.LoggerName)
	assert.Equal(t, "repo", entry.ContextMap()["bean"])
	assert.Equal(t, "x", entry.ContextMap()["error"])
	assert.NoError(t, factory.Close())
}

func TestNopLogger(t *testing.T) {
	l := NewNop().WithCategory("x").WithFields(Field{Key: "k", Value: 1})
	l.Info("nothing")
	assert.NotNil(t, l)
}

type syncWriter struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func BenchmarkAsyncLogging(b *testing.B) {
	// 使用 io.Discard 避免 I/O 瓶颈，测试 AsyncWriter 自身的开销
	asyncWriter := NewAsyncWriter(io.Discard, NewTextFormatter(), 10000)
	defer asyncWriter.Close()

	entry := &LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "Benchmark"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		asyncWriter.WriteLog(entry)
	}
}
