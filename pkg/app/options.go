package app

import (
	"github.com/HorseArcher567/applog/pkg/forward"
	"github.com/HorseArcher567/applog/pkg/xlog"
)

// Option 用于自定义 App 的初始化行为。
type Option func(a *App)

// WithLogger 使用已有的 logger 实例。
// 未完成 Setup 的 logger 会按 Framework.Logger 初始化；Run 结束后统一关闭。
func WithLogger(log *xlog.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithLoggerOptions 传入创建 logger 时使用的选项，WithLogger 存在时忽略。
func WithLoggerOptions(opts ...xlog.Option) Option {
	return func(a *App) {
		a.logOpts = append(a.logOpts, opts...)
	}
}

// WithPublisher 替换告警转发的发布端，默认连接 Redis。
func WithPublisher(p forward.Publisher) Option {
	return func(a *App) {
		if p != nil {
			a.publisher = p
		}
	}
}
