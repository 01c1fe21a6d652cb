package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "socialfeed"

var Log = zap.NewNop()

// New builds the logger for env. Production logs JSON to stdout, tagged with
// the service and env; anything else gets the colored development console.
func New(env string) (*zap.Logger, error) {
	return newConfig(env).Build()
}

func newConfig(env string) zap.Config {
	if env != "production" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return cfg
	}

	cfg := zap.NewProductionConfig()
	// Upstream failure lines must never be sampled away.
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.InitialFields = map[string]any{
		"service": serviceName,
		"env":     env,
	}
	return cfg
}

// InitLogger sets the process-wide Log.
func InitLogger(env string) {
	l, err := New(env)
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = l
	Log.Info("Logger initialized", zap.String("env", env))
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
