package viewer

import "time"

// Config 日志查看服务配置。
//
// 示例配置:
// viewer:
//
//	host: 127.0.0.1
//	port: 9090
//	mode: release
//	tailLines: 200
//	alertBuffer: 64
//	readTimeout: 5s
//	idleTimeout: 60s
type Config struct {
	// Host 监听地址，默认 127.0.0.1。
	Host string `yaml:"host" json:"host" toml:"host"`

	// Port 监听端口，0 表示随机端口。
	Port int `yaml:"port" json:"port" toml:"port"`

	// Mode Gin 运行模式: debug / release / test。
	Mode string `yaml:"mode" json:"mode" toml:"mode"`

	// EnablePProf 是否启用 pprof 路由。
	EnablePProf bool `yaml:"enablePProf" json:"enablePProf" toml:"enablePProf"`

	// TailLines /files/:name 默认返回的行数。
	TailLines int `yaml:"tailLines" json:"tailLines" toml:"tailLines"`

	// AlertBuffer 每个 /alerts 连接的告警缓冲大小。
	AlertBuffer int `yaml:"alertBuffer" json:"alertBuffer" toml:"alertBuffer"`

	// ReadTimeout 读超时时间。
	ReadTimeout time.Duration `yaml:"readTimeout" json:"readTimeout" toml:"readTimeout"`

	// IdleTimeout 空闲连接超时时间。
	// 没有写超时，/alerts 是长连接。
	IdleTimeout time.Duration `yaml:"idleTimeout" json:"idleTimeout" toml:"idleTimeout"`
}

const (
	defaultTailLines = 200
	maxTailLines     = 10000
)

func (c Config) normalize() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
	if c.TailLines <= 0 {
		c.TailLines = defaultTailLines
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}
