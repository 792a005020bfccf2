// Package configslog holds the process-wide zap loggers.
package configslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log  *zap.Logger        = zap.NewNop()
	SLog *zap.SugaredLogger = Log.Sugar()
)

// InitLogger replaces the no-op loggers. debug selects the human readable
// development encoder at debug level; otherwise JSON at info level.
func InitLogger(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	SLog = l.Sugar()
	return nil
}

func Sync() {
	_ = Log.Sync()
}
