package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncWriter 在后台协程中格式化并写入日志条目
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     chan struct{}
	errHandler func(error)
}

// NewAsyncWriter 创建新的异步写入器
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
		closed:    make(chan struct{}),
		errHandler: func(err error) {
			fmt.Fprintf(os.Stderr, "logging: async writer: %v\n", err)
		},
	}

	w.wg.Add(1)
	go w.process()
	return w
}

// WriteLog 写入日志条目。队列满时阻塞以保证不丢日志，关闭后的写入被丢弃。
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	select {
	case <-w.closed:
		return
	default:
	}
	select {
	case w.entryCh <- entry:
	case <-w.closed:
	}
}

// Close 停止接收并等待队列写完
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
	w.wg.Wait()
	return nil
}

// SetErrorHandler 设置错误处理函数
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	if handler != nil {
		w.errHandler = handler
	}
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()
	for {
		select {
		case entry := <-w.entryCh:
			w.write(entry)
		case <-w.closed:
			// 写完剩余条目
			for {
				select {
				case entry := <-w.entryCh:
					w.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) write(entry *LogEntry) {
	data, err := w.formatter.Format(entry)
	if err != nil {
		w.errHandler(err)
		return
	}
	if _, err := w.writer.Write(data); err != nil {
		w.errHandler(err)
	}
}
