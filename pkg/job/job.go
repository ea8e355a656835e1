package job

import (
	"context"
	"errors"
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog"
)

// Func 任务函数，ctx 在调度器停止时取消
type Func func(ctx context.Context, log *xlog.Logger) error

type Job struct {
	// Job name
	Name string `yaml:"name" json:"name" toml:"name"`

	// Interval > 0 时按间隔重复执行，否则只执行一次
	Interval time.Duration `yaml:"interval" json:"interval" toml:"interval"`

	// Job function
	Func Func `yaml:"-" json:"-" toml:"-"`
}

func (j *Job) Validate() error {
	if j.Name == "" {
		return errors.New("job name is required")
	}
	if j.Func == nil {
		return errors.New("job function is required")
	}
	if j.Interval < 0 {
		return errors.New("job interval must not be negative")
	}
	return nil
}

// Run 执行任务，周期任务在 ctx 结束前不会返回
// 单次执行失败只记录日志，不会中断周期任务
func (j *Job) Run(ctx context.Context, log *xlog.Logger) error {
	log = log.With("job", j.Name)
	if j.Interval <= 0 {
		log.Debug("running job")
		return j.Func(ctx, log)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Func(ctx, log); err != nil {
				log.Error("job tick failed", "error", err)
			}
		}
	}
}
