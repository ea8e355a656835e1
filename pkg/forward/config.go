package forward

import "time"

// Config 告警转发配置。
//
// 示例配置:
// forward:
//
//	enabled: true
//	addr: 127.0.0.1:6379
//	channel: applog:alerts
type Config struct {
	// Enabled 是否启用转发。
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// Addr Redis 地址，默认 127.0.0.1:6379。
	Addr string `yaml:"addr" json:"addr" toml:"addr"`

	// Password Redis 密码。
	Password string `yaml:"password" json:"password" toml:"password"`

	// DB Redis 数据库编号。
	DB int `yaml:"db" json:"db" toml:"db"`

	// Channel 发布告警的频道，默认 applog:alerts。
	Channel string `yaml:"channel" json:"channel" toml:"channel"`

	// Buffer 告警订阅缓冲大小，默认 256，满时丢弃。
	Buffer int `yaml:"buffer" json:"buffer" toml:"buffer"`

	// Timeout 单次发布超时时间，默认 2s。
	Timeout time.Duration `yaml:"timeout" json:"timeout" toml:"timeout"`

	// App 消息中的应用名。
	App string `yaml:"app" json:"app" toml:"app"`
}

func (c Config) normalize() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:6379"
	}
	if c.Channel == "" {
		c.Channel = "applog:alerts"
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	return c
}
