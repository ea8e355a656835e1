package xlog

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config 日志配置
type Config struct {
	// Level 全局最低级别：debug/info/warn/error（默认 info）
	// 各 sink 未单独配置级别时使用该值
	Level string `yaml:"level" json:"level" toml:"level"`

	// AppName 应用名，用于计算日志目录（默认取可执行文件名）
	AppName string `yaml:"appName" json:"appName" toml:"appName"`

	// GroupID 共享容器标识，非空时日志写入共享容器下的 Library/Logs/<AppName>
	GroupID string `yaml:"groupId" json:"groupId" toml:"groupId"`

	// Console 控制台输出，默认关闭
	Console ConsoleConfig `yaml:"console" json:"console" toml:"console"`

	// File 文件输出，总是开启
	File FileConfig `yaml:"file" json:"file" toml:"file"`
}

// ConsoleConfig 控制台 sink 配置
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// Level 为空时使用 Config.Level
	Level string `yaml:"level" json:"level" toml:"level"`

	// Output 输出目标：stdout/stderr（默认 stderr）
	Output string `yaml:"output" json:"output" toml:"output"`

	// Fields 行首字段：time/level/source 的任意子集，为空时为 time+level
	Fields []string `yaml:"fields" json:"fields" toml:"fields"`
}

// FileConfig 文件 sink 配置
type FileConfig struct {
	// Dir 显式指定日志目录，跳过目录解析
	Dir string `yaml:"dir" json:"dir" toml:"dir"`

	// Name 文件名前缀（默认 AppName）
	Name string `yaml:"name" json:"name" toml:"name"`

	// Level 为空时使用 Config.Level
	Level string `yaml:"level" json:"level" toml:"level"`

	// Fields 同 ConsoleConfig.Fields
	Fields []string `yaml:"fields" json:"fields" toml:"fields"`

	// MaxFiles 最多保留的文件数（默认 10）
	MaxFiles int `yaml:"maxFiles" json:"maxFiles" toml:"maxFiles"`

	// MaxAge 单个文件的最长写入时间（默认 1h）
	MaxAge time.Duration `yaml:"maxAge" json:"maxAge" toml:"maxAge"`

	// MaxSizeMB 单个文件大小上限，0 表示不按大小轮转
	MaxSizeMB int `yaml:"maxSizeMB" json:"maxSizeMB" toml:"maxSizeMB"`
}

func normalize(cfg Config) Config {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.AppName == "" {
		cfg.AppName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.Level
	}
	if cfg.Console.Output == "" {
		cfg.Console.Output = "stderr"
	}
	if cfg.File.Level == "" {
		cfg.File.Level = cfg.Level
	}
	if cfg.File.Name == "" {
		cfg.File.Name = cfg.AppName
	}
	return cfg
}
