package xlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，全序：Debug < Info < Warn < Error
// 数值与 slog.Level 保持一致
type Level int

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// ErrInvalidLevel 配置中的级别字符串无法识别
var ErrInvalidLevel = errors.New("invalid log level")

// Valid 是否为可识别的四个级别之一
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// String 返回日志行中使用的级别标签
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Slog 转换为 slog.Level
func (l Level) Slog() slog.Level {
	return slog.Level(l)
}

// IsAlert warning 和 error 会被额外发布到告警通道
func (l Level) IsAlert() bool {
	return l.Valid() && l >= LevelWarn
}

// ShouldEmit 当且仅当 entry >= min 时输出
func ShouldEmit(entry, min Level) bool {
	return entry >= min
}

// ParseLevel 解析级别字符串：debug/info/warn(warning)/error，大小写不敏感
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}

// fromSlog 将任意 slog.Level 归入最接近的四个级别之一
func fromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// MarshalText 以级别标签编码，JSON 中为 "WARNING" 等
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 接受 ParseLevel 支持的任意写法
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
