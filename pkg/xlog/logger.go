package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog/alert"
	"github.com/HorseArcher567/applog/pkg/xlog/folder"
	"github.com/HorseArcher567/applog/pkg/xlog/rotate"
)

var (
	// ErrAlreadyConfigured Setup 只能成功调用一次
	ErrAlreadyConfigured = errors.New("logger already configured")

	// ErrClosed Logger 已关闭，不能再 Setup
	ErrClosed = errors.New("logger closed")

	// ErrFolderUnavailable 无法确定或创建日志目录
	ErrFolderUnavailable = folder.ErrUnavailable
)

// Logger 日志入口
// 通过嵌入 *slog.Logger，可以直接调用所有 slog 的方法，记录经由同一分发器输出
// 由 New 创建后处于未初始化状态，此时所有输出被丢弃；Setup 成功后进入工作状态
type Logger struct {
	*slog.Logger
	core *core
}

// core 由 Logger 及其 With 派生出的副本共享
type core struct {
	mu     sync.Mutex
	active atomic.Bool
	closed atomic.Bool

	// 以下字段在 Setup 中写入，active 置位后只读
	sinks    []*Sink
	minLevel Level
	file     *rotate.Writer
	dir      string

	alerts   *alert.Broker[Entry]
	now      func() time.Time
	resolver *folder.Resolver
	console  io.Writer
	extra    []*Sink
}

// Option 自定义 Logger
type Option func(c *core)

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		c.now = now
	}
}

// WithResolver 替换日志目录解析器
func WithResolver(r *folder.Resolver) Option {
	return func(c *core) {
		c.resolver = r
	}
}

// WithConsoleWriter 控制台 sink 写入 w 而不是 stdout/stderr
func WithConsoleWriter(w io.Writer) Option {
	return func(c *core) {
		c.console = w
	}
}

// WithSinks 在 Setup 时追加额外的 sink
func WithSinks(sinks ...*Sink) Option {
	return func(c *core) {
		c.extra = append(c.extra, sinks...)
	}
}

// New 创建一个未初始化的 Logger，需要调用 Setup 才会输出
func New(opts ...Option) *Logger {
	c := &core{
		now:      time.Now,
		resolver: &folder.Resolver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.alerts = alert.NewBroker(alert.WithOnDrop[Entry](func() {
		alertsDropped.Inc()
	}))

	return &Logger{
		Logger: slog.New(&handler{core: c}),
		core:   c,
	}
}

// Setup 解析日志目录、打开日志文件并进入工作状态
// 只能成功调用一次，之后返回 ErrAlreadyConfigured；失败后可以重试
func (l *Logger) Setup(cfg Config) error {
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active.Load() {
		return ErrAlreadyConfigured
	}
	if c.closed.Load() {
		return ErrClosed
	}

	cfg = normalize(cfg)
	if _, err := ParseLevel(cfg.Level); err != nil {
		return err
	}

	fileLevel, err := ParseLevel(cfg.File.Level)
	if err != nil {
		return err
	}
	fileFormat, err := parseFields(cfg.File.Fields)
	if err != nil {
		return err
	}

	var sinks []*Sink
	var console *Sink
	if cfg.Console.Enabled {
		level, err := ParseLevel(cfg.Console.Level)
		if err != nil {
			return err
		}
		format, err := parseFields(cfg.Console.Fields)
		if err != nil {
			return err
		}
		w := c.console
		if w == nil {
			if w, err = resolveConsole(cfg.Console.Output); err != nil {
				return err
			}
		}
		console = NewConsoleSink(w, level, format)
	}

	dir := cfg.File.Dir
	if dir == "" {
		if dir, err = c.resolver.Resolve(cfg.AppName, cfg.GroupID); err != nil {
			return err
		}
	}

	file, err := rotate.New(rotate.Config{
		Dir:       dir,
		Name:      cfg.File.Name,
		MaxFiles:  cfg.File.MaxFiles,
		MaxAge:    cfg.File.MaxAge,
		MaxSizeMB: cfg.File.MaxSizeMB,
	}, rotate.WithClock(c.now), rotate.WithOnRotate(func(string) {
		rotations.Inc()
	}))
	if err != nil {
		if errors.Is(err, rotate.ErrDir) {
			return fmt.Errorf("%w: %w", ErrFolderUnavailable, err)
		}
		return fmt.Errorf("open log file: %w", err)
	}

	sinks = append(sinks, NewFileSink(file, fileLevel, fileFormat))
	if console != nil {
		sinks = append(sinks, console)
	}
	sinks = append(sinks, c.extra...)

	c.minLevel = LevelError
	for _, s := range sinks {
		c.minLevel = min(c.minLevel, s.Level())
	}
	c.sinks = sinks
	c.file = file
	c.dir = dir
	c.active.Store(true)
	return nil
}

// MustSetup 同 Setup（失败时 panic）
func (l *Logger) MustSetup(cfg Config) {
	if err := l.Setup(cfg); err != nil {
		panic(fmt.Sprintf("failed to setup logger: %v", err))
	}
}

// Active 是否已完成 Setup 且未关闭
func (l *Logger) Active() bool {
	return l.core.active.Load() && !l.core.closed.Load()
}

// Emit 记录一条日志，function/file/line 为调用点信息
// 未初始化时直接返回；不会向调用方返回任何错误
func (l *Logger) Emit(msg string, level Level, function, file string, line int) {
	c := l.core
	if !c.active.Load() || c.closed.Load() {
		return
	}
	c.dispatch(Entry{
		Time:     c.now(),
		Level:    level,
		Message:  msg,
		Function: function,
		File:     file,
		Line:     line,
	})
}

// With 返回附加了属性的 Logger，与原 Logger 共享输出
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		core:   l.core,
	}
}

// Subscribe 订阅 warning 和 error 级别的告警，可在 Setup 之前调用
// buffer 满时新告警对该订阅者丢弃，不会阻塞日志调用
func (l *Logger) Subscribe(buffer int) *alert.Subscription[Entry] {
	return l.core.alerts.Subscribe(buffer)
}

// Dir 返回日志目录，未初始化时为空
func (l *Logger) Dir() string {
	if !l.core.active.Load() {
		return ""
	}
	return l.core.dir
}

// Files 返回日志目录中由本 Logger 管理的文件，旧的在前
func (l *Logger) Files() ([]string, error) {
	if !l.core.active.Load() {
		return nil, nil
	}
	return l.core.file.Files()
}

// ActiveFile 返回当前写入的文件路径
func (l *Logger) ActiveFile() string {
	if !l.core.active.Load() {
		return ""
	}
	return l.core.file.Active()
}

// RotateIfDue 当前文件到期但一直没有写入时执行轮转，由定时任务调用
func (l *Logger) RotateIfDue() (bool, error) {
	if !l.Active() {
		return false, nil
	}
	return l.core.file.RotateIfDue()
}

// Close 关闭所有 sink 和告警订阅，应在进程退出前调用
// 关闭后的日志调用被丢弃，重复调用返回 nil
func (l *Logger) Close() error {
	if l == nil || l.core == nil {
		return nil
	}
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}
	c.alerts.Close()

	var errs []error
	for _, s := range c.sinks {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *core) enabled(level Level) bool {
	if !c.active.Load() || c.closed.Load() {
		return false
	}
	return level >= c.minLevel || level.IsAlert()
}

// dispatch 发布告警并依次写入每个 sink
// 告警先于 sink 写入，磁盘故障不会影响告警
func (c *core) dispatch(e Entry) {
	if !e.Level.Valid() {
		e.Message = fmt.Sprintf("[invalid level %d] %s", int(e.Level), e.Message)
		e.Level = LevelError
	}
	emitted.WithLabelValues(e.Level.String()).Inc()

	if e.Level.IsAlert() {
		c.alerts.Publish(e)
	}

	for _, s := range c.sinks {
		if !s.Enabled(e.Level) {
			continue
		}
		c.deliver(s, e)
	}
}

func (c *core) deliver(s *Sink, e Entry) {
	err := s.write(e)
	if err != nil {
		sinkWriteFailures.WithLabelValues(s.name).Inc()
		if s.failing.CompareAndSwap(false, true) {
			c.report(s, LevelError, err.Error())
		}
		return
	}
	if s.failing.CompareAndSwap(true, false) {
		c.report(nil, LevelInfo, fmt.Sprintf("log sink %s recovered", s.name))
	}
}

// report 将 sink 状态变化写入其他 sink，不发布告警，写入错误忽略
func (c *core) report(skip *Sink, level Level, msg string) {
	e := Entry{
		Time:     c.now(),
		Level:    level,
		Message:  msg,
		Function: "xlog.dispatch",
	}
	for _, s := range c.sinks {
		if s == skip || !s.Enabled(level) {
			continue
		}
		_ = s.write(e)
	}
}
