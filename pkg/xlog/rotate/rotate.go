package rotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// 文件名中的时间格式（固定，UTC），例如 app-2026-10-19T08-00-00.000Z.log
const timeFormat = "2006-01-02T15-04-05.000Z"
const defaultExt = ".log"

// RestartMarker 进程重启后续写已有文件时插入的分隔行
const RestartMarker = "==================== process restarted ===================="

// ErrClosed Close 之后继续 Write/Rotate 时返回
var ErrClosed = errors.New("rotate: writer is closed")

// ErrDir 日志目录无法创建或读取
var ErrDir = errors.New("rotate: log directory unavailable")

// Option 用于自定义 Writer 的行为
type Option func(w *Writer)

// WithClock 替换时间来源，主要用于测试
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithOnRotate 注册轮转完成后的回调，参数为新的活动文件路径
// 回调在持有锁的情况下执行，不能再调用 Writer 的方法
func WithOnRotate(fn func(active string)) Option {
	return func(w *Writer) {
		w.onRotate = fn
	}
}

// Writer 实现了 io.WriteCloser 接口，按时间（可选按大小）轮转，并限制保留的文件数量
// 所有文件操作都在同一把锁内完成，保证单写者语义
type Writer struct {
	config Config
	mu     sync.Mutex

	file    *os.File
	path    string    // 当前活动文件
	created time.Time // 当前文件的创建时间（来自文件名）
	size    int64
	closed  bool

	now      func() time.Time
	onRotate func(active string)
}

// logFile 目录中一个受管理的日志文件
type logFile struct {
	path    string
	created time.Time
}

// New 创建一个新的轮转写入器
// 如果最新的日志文件仍在当前周期内，则以追加方式打开并写入 RestartMarker
func New(config Config, opts ...Option) (*Writer, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("rotate: dir is required")
	}

	w := &Writer{
		config: config.normalize(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.init(); err != nil {
		return nil, err
	}
	return w, nil
}

// MustNew 创建一个新的轮转写入器（失败时 panic）
func MustNew(config Config, opts ...Option) *Writer {
	w, err := New(config, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize rotate writer: %v", err))
	}
	return w
}

// Write 实现 io.Writer 接口
// 调用方应保证每次 Write 是完整的一行，这样并发写入不会交错
func (w *Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	var rotateErr error
	if w.due(w.now(), len(p)) {
		// 轮转失败时继续写入旧文件，避免丢日志
		rotateErr = w.rotate(w.now())
	}

	n, err = w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}
	if rotateErr != nil {
		return n, fmt.Errorf("failed to rotate log file: %w", rotateErr)
	}
	return n, nil
}

// Rotate 立即轮转到一个新文件
func (w *Writer) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.rotate(w.now())
}

// RotateIfDue 当前文件到期时轮转，返回是否发生了轮转
// 用于没有写入的空闲进程也能按时切换文件
func (w *Writer) RotateIfDue() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, ErrClosed
	}
	if !w.due(w.now(), 0) {
		return false, nil
	}
	if err := w.rotate(w.now()); err != nil {
		return false, err
	}
	return true, nil
}

// Active 返回当前活动文件路径
func (w *Writer) Active() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Dir 返回日志目录
func (w *Writer) Dir() string {
	return w.config.Dir
}

// Files 返回目录中受管理的日志文件，按创建时间从旧到新排序
func (w *Writer) Files() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, err := w.scan()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Sync 将缓冲数据刷到磁盘
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close 实现 io.Closer 接口，重复调用返回 nil
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// init 初始化日志目录并选择活动文件
func (w *Writer) init() error {
	// 确保目录存在
	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create: %w", ErrDir, err)
	}

	files, err := w.scan()
	if err != nil {
		return err
	}

	now := w.now()
	if len(files) > 0 {
		last := files[len(files)-1]
		reused, err := w.reopen(last, now)
		if err != nil {
			return err
		}
		if reused {
			return w.prune()
		}
	}

	if err := w.openNew(now); err != nil {
		return err
	}
	return w.prune()
}

// reopen 尝试续写上一次运行留下的文件
func (w *Writer) reopen(f logFile, now time.Time) (bool, error) {
	if now.Sub(f.created) >= w.config.MaxAge {
		return false, nil
	}

	info, err := os.Stat(f.path)
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	if w.maxSize() > 0 && info.Size() >= w.maxSize() {
		return false, nil
	}

	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open log file: %w", err)
	}

	marker := RestartMarker + "\n"
	if info.Size() > 0 {
		torn, err := endsWithoutNewline(f.path, info.Size())
		if err != nil {
			file.Close()
			return false, err
		}
		// 上次运行中断在行中间，标记另起一行
		if torn {
			marker = "\n" + marker
		}
	}

	n, err := file.WriteString(marker)
	if err != nil {
		file.Close()
		return false, fmt.Errorf("failed to write restart marker: %w", err)
	}

	w.file = file
	w.path = f.path
	w.created = f.created
	w.size = info.Size() + int64(n)
	return true, nil
}

// due 判断写入 n 字节前是否需要轮转
func (w *Writer) due(now time.Time, n int) bool {
	if now.Sub(w.created) >= w.config.MaxAge {
		return true
	}
	limit := w.maxSize()
	return limit > 0 && w.size > 0 && w.size+int64(n) > limit
}

func (w *Writer) maxSize() int64 {
	return int64(w.config.MaxSizeMB) * 1024 * 1024
}

// rotate 执行轮转：先打开新文件，成功后再关闭旧文件并清理
func (w *Writer) rotate(now time.Time) error {
	old := w.file
	if err := w.openNew(now); err != nil {
		return err
	}
	if old != nil {
		old.Close()
	}

	if w.onRotate != nil {
		w.onRotate(w.path)
	}
	return w.prune()
}

// endsWithoutNewline 判断文件最后一个字节是否不是换行
func endsWithoutNewline(path string, size int64) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false, fmt.Errorf("failed to read log file: %w", err)
	}
	return last[0] != '\n', nil
}

// openNew 以 now 为创建时间创建新文件，同名文件已存在时顺延 1ms
func (w *Writer) openNew(now time.Time) error {
	created := now.UTC().Truncate(time.Millisecond)
	for {
		path := w.fileName(created)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w.file = file
			w.path = path
			w.created = created
			w.size = 0
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		created = created.Add(time.Millisecond)
	}
}

// prune 删除最旧的文件，直到数量不超过 MaxFiles
func (w *Writer) prune() error {
	files, err := w.scan()
	if err != nil {
		return err
	}

	var errs []error
	excess := len(files) - w.config.MaxFiles
	for _, f := range files {
		if excess <= 0 {
			break
		}
		if f.path == w.path {
			continue
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove old log file: %w", err))
			continue
		}
		excess--
	}
	return errors.Join(errs...)
}

// scan 列出目录中受管理的日志文件，按创建时间从旧到新排序
func (w *Writer) scan() ([]logFile, error) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrDir, err)
	}

	var files []logFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := w.parseFileTime(e.Name())
		if !ok {
			continue
		}
		files = append(files, logFile{
			path:    filepath.Join(w.config.Dir, e.Name()),
			created: created,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].created.Equal(files[j].created) {
			return files[i].path < files[j].path
		}
		return files[i].created.Before(files[j].created)
	})
	return files, nil
}

// fileName 生成文件名：{dir}/{name}-{time}{ext}
func (w *Writer) fileName(created time.Time) string {
	name := fmt.Sprintf("%s-%s%s", w.config.Name, created.Format(timeFormat), w.config.Ext)
	return filepath.Join(w.config.Dir, name)
}

// parseFileTime 从文件名中解析创建时间
func (w *Writer) parseFileTime(filename string) (time.Time, bool) {
	prefix := w.config.Name + "-"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, w.config.Ext) {
		return time.Time{}, false
	}
	if len(filename) < len(prefix)+len(w.config.Ext) {
		return time.Time{}, false
	}

	part := filename[len(prefix) : len(filename)-len(w.config.Ext)]
	created, err := time.ParseInLocation(timeFormat, part, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}
