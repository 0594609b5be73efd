package logger

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

type kratosLogger struct{}

// NewKratosLogger 把 kratos 框架日志转发到全局 Log，格式与其余日志一致
func NewKratosLogger() log.Logger {
	return kratosLogger{}
}

// Log 实现 kratos log.Logger 接口
func (kratosLogger) Log(level log.Level, keyvals ...interface{}) error {
	var msg string
	fields := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val interface{} = "KEYVALS UNPAIRED"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(val)
			continue
		}
		fields[key] = val
	}

	entry := Log.WithFields(fields)
	switch level {
	case log.LevelDebug:
		entry.Debug(msg)
	case log.LevelWarn:
		entry.Warn(msg)
	case log.LevelError, log.LevelFatal:
		// 不在框架日志里退出进程
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}
