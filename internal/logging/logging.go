package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pybill/pbdash/internal/config"
)

// Setup builds a file-backed zap logger with rotation, installs it as the
// global logger and redirects the stdlib log package. The terminal belongs to
// the TUI, so nothing is written to stdout or stderr. Callers should defer
// logger.Sync().
func Setup(c config.LogConfig) (*zap.Logger, error) {
	if strings.TrimSpace(c.File) == "" {
		return nil, fmt.Errorf("log file is empty")
	}
	if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	level := zap.NewAtomicLevelAt(parseLevel(c.Level))
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	ws := zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    max(c.MaxSizeMB, 1),
		MaxBackups: max(c.MaxBackups, 1),
		MaxAge:     max(c.MaxAgeDays, 1),
	})
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	zap.ReplaceGlobals(logger)
	_, _ = zap.RedirectStdLogAt(logger, zap.InfoLevel)
	return logger, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
