package rotate

import "time"

const (
	// DefaultMaxFiles 默认保留的日志文件数量
	DefaultMaxFiles = 10
	// DefaultMaxAge 默认单个日志文件覆盖的最长时间
	DefaultMaxAge = time.Hour
)

// Config 日志轮转配置
type Config struct {
	// Dir 日志目录（必填）
	Dir string `yaml:"dir" json:"dir" toml:"dir"`

	// Name 日志文件名前缀，默认 "app"
	Name string `yaml:"name" json:"name" toml:"name"`

	// Ext 日志文件扩展名（包含点号），默认 ".log"
	Ext string `yaml:"ext" json:"ext" toml:"ext"`

	// MaxFiles 最多保留的日志文件数量（包含当前文件），<= 0 时使用默认值 10
	MaxFiles int `yaml:"maxFiles" json:"maxFiles" toml:"maxFiles"`

	// MaxAge 单个文件自创建起的最长时间，超过后轮转，<= 0 时使用默认值 1h
	MaxAge time.Duration `yaml:"maxAge" json:"maxAge" toml:"maxAge"`

	// MaxSizeMB 单个文件的最大大小（MB），0 表示不按大小轮转
	MaxSizeMB int `yaml:"maxSizeMB" json:"maxSizeMB" toml:"maxSizeMB"`
}

func (c Config) normalize() Config {
	if c.Name == "" {
		c.Name = "app"
	}
	if c.Ext == "" {
		c.Ext = defaultExt
	}
	if c.Ext[0] != '.' {
		c.Ext = "." + c.Ext
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	return c
}
