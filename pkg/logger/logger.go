package logger

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// Init builds the process-wide logger. Verbose switches to the development
// config with debug level and stack traces.
func Init(verbose bool) *zap.SugaredLogger {
	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.Encoding = "console"
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	config.DisableStacktrace = !verbose

	l, err := config.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l)
	logger = l.Sugar()
	return logger
}

// Get returns the global logger, initializing a non-verbose one on first use.
func Get() *zap.SugaredLogger {
	if logger == nil {
		Init(false)
	}
	return logger
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

func WithConversation(l *zap.SugaredLogger, conversationID uuid.UUID) *zap.SugaredLogger {
	return l.With("conversation_id", conversationID.String())
}

func WithTool(l *zap.SugaredLogger, toolName, callID string) *zap.SugaredLogger {
	return l.With("tool", toolName, "tool_call_id", callID)
}

// LogDuration logs the duration of an operation.
// Usage: defer logger.LogDuration(log, "operation", time.Now())
func LogDuration(l *zap.SugaredLogger, operation string, start time.Time) {
	d := time.Since(start)
	l.With("operation", operation, "duration_ms", d.Milliseconds()).
		Debugf("completed %s in %v", operation, d)
}
