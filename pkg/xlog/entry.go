package xlog

import "time"

// Entry 一条日志记录，在调用点创建，由 Logger 同步消费
type Entry struct {
	Time     time.Time `json:"time"`
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	Function string    `json:"function,omitempty"`
	File     string    `json:"file,omitempty"`
	Line     int       `json:"line,omitempty"`
}

// Equal 比较所有字段，时间使用 time.Time.Equal 比较
func (e Entry) Equal(other Entry) bool {
	return e.Time.Equal(other.Time) &&
		e.Level == other.Level &&
		e.Message == other.Message &&
		e.Function == other.Function &&
		e.File == other.File &&
		e.Line == other.Line
}
