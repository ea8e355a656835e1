package xlog

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimeLayout 日志行的时间格式：yyyy-MM-dd HH:mm:ss.SSS
const TimeLayout = "2006-01-02 15:04:05.000"

// 可配置的字段名
const (
	FieldTime   = "time"
	FieldLevel  = "level"
	FieldSource = "source"
)

// FormatOptions 控制一行日志包含哪些字段，消息总是在最后
type FormatOptions struct {
	ShowTime   bool
	ShowLevel  bool
	ShowSource bool

	// Location 时间所用时区，nil 表示 time.Local
	Location *time.Location
}

// DefaultFormat 返回默认格式：<timestamp> <level> <message>
func DefaultFormat() FormatOptions {
	return FormatOptions{ShowTime: true, ShowLevel: true}
}

var lineEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Render 将 entry 渲染为以换行结尾的一行文本
// 纯函数：相同的 entry 与 opts 总是得到相同的输出
func Render(e Entry, opts FormatOptions) string {
	var b strings.Builder
	b.Grow(len(e.Message) + 64)

	if opts.ShowTime {
		loc := opts.Location
		if loc == nil {
			loc = time.Local
		}
		b.WriteString(e.Time.In(loc).Format(TimeLayout))
		b.WriteByte(' ')
	}
	if opts.ShowLevel {
		b.WriteString(e.Level.String())
		b.WriteByte(' ')
	}
	if opts.ShowSource {
		if src := source(e); src != "" {
			b.WriteByte('[')
			b.WriteString(src)
			b.WriteString("] ")
		}
	}

	// 保证一条日志只占一行
	b.WriteString(lineEscaper.Replace(e.Message))
	b.WriteByte('\n')
	return b.String()
}

// source 格式：file.go:42 pkg.Func
func source(e Entry) string {
	var parts []string
	if e.File != "" {
		parts = append(parts, filepath.Base(e.File)+":"+strconv.Itoa(e.Line))
	}
	if e.Function != "" {
		fn := e.Function
		if i := strings.LastIndexByte(fn, '/'); i >= 0 {
			fn = fn[i+1:]
		}
		parts = append(parts, fn)
	}
	return strings.Join(parts, " ")
}

// parseFields 将配置中的字段列表转换为 FormatOptions，空列表使用默认格式
func parseFields(fields []string) (FormatOptions, error) {
	if len(fields) == 0 {
		return DefaultFormat(), nil
	}

	var opts FormatOptions
	for _, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FieldTime:
			opts.ShowTime = true
		case FieldLevel:
			opts.ShowLevel = true
		case FieldSource:
			opts.ShowSource = true
		default:
			return FormatOptions{}, fmt.Errorf("unsupported log field: %s", f)
		}
	}
	return opts, nil
}
