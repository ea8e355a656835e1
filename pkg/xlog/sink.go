package xlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/HorseArcher567/applog/pkg/xlog/rotate"
)

// WriteError sink 写入失败，不会向调用方传播，只会通过其他 sink 报告一次
type WriteError struct {
	Sink string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("log sink %s: %v", e.Sink, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Sink 一个输出目标，拥有独立的最低级别和格式
type Sink struct {
	name   string
	level  Level
	format FormatOptions

	mu     sync.Mutex
	writer io.Writer

	// failing 上一次写入是否失败，用于只报告一次故障和一次恢复
	failing atomic.Bool
}

// NewSink 使用任意 writer 创建 sink，writer 不需要并发安全
func NewSink(name string, w io.Writer, level Level, format FormatOptions) *Sink {
	return &Sink{
		name:   name,
		level:  level,
		format: format,
		writer: w,
	}
}

// NewConsoleSink 创建控制台 sink，w 为 nil 时写 os.Stderr
func NewConsoleSink(w io.Writer, level Level, format FormatOptions) *Sink {
	if w == nil {
		w = os.Stderr
	}
	return NewSink("console", w, level, format)
}

// NewFileSink 创建写入轮转文件的 sink
func NewFileSink(w *rotate.Writer, level Level, format FormatOptions) *Sink {
	return NewSink("file", w, level, format)
}

// Name 返回 sink 名称
func (s *Sink) Name() string {
	return s.name
}

// Level 返回 sink 的最低级别
func (s *Sink) Level() Level {
	return s.level
}

// Enabled 该级别是否会被此 sink 输出
func (s *Sink) Enabled(level Level) bool {
	return ShouldEmit(level, s.level)
}

// write 渲染并写入一行，writer 的 panic 转换为错误
func (s *Sink) write(e Entry) (err error) {
	line := Render(e, s.format)

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = &WriteError{Sink: s.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	n, werr := io.WriteString(s.writer, line)
	if werr == nil && n < len(line) {
		werr = io.ErrShortWrite
	}
	if werr != nil {
		return &WriteError{Sink: s.name, Err: werr}
	}
	return nil
}

// close 关闭实现了 io.Closer 的 writer，标准输出和标准错误不关闭
func (s *Sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == os.Stdout || s.writer == os.Stderr {
		return nil
	}
	if c, ok := s.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func resolveConsole(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("unsupported console output: %s", output)
	}
}
