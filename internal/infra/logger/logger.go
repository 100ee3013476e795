package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sifan077/ShortcutURL/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const serviceName = "shortcuturl"

// Config drives how the zap logger is built.
type Config struct {
	Development bool
	Level       string
	Encoding    string
}

// FromApp derives the logger config from the application section: console
// output outside production, JSON in production.
func FromApp(app config.AppConfig) Config {
	if app.Production() {
		return Config{Level: app.LogLevel, Encoding: "json"}
	}
	return Config{Development: true, Level: app.LogLevel, Encoding: "console"}
}

var (
	mu     sync.RWMutex
	global *zap.Logger
	colors = shouldColorize()
)

// Init builds a zap logger with the provided config and stores it globally.
func Init(cfg Config) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		_ = global.Sync()
	}
	global = l
	zap.ReplaceGlobals(l)
	return global, nil
}

// L returns the global logger, or a no-op logger if Init was never called.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Sync flushes the global logger. Errors from syncing a terminal are ignored.
func Sync() error {
	mu.RLock()
	l := global
	mu.RUnlock()

	if l == nil {
		return nil
	}
	if err := l.Sync(); err != nil && !ignorableSyncError(err) {
		return err
	}
	return nil
}

func ignorableSyncError(err error) bool {
	return errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid)
}

// New returns a zap.Logger configured according to cfg.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Encoding != "" {
		zapCfg.Encoding = cfg.Encoding
	}
	zapCfg.EncoderConfig = encoderConfig(zapCfg.Encoding)
	zapCfg.InitialFields = map[string]interface{}{"service": serviceName}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if encoding == "console" {
		cfg.ConsoleSeparator = " | "
		cfg.EncodeLevel = consoleLevelEncoder
		cfg.EncodeTime = consoleTimeEncoder
	}
	return cfg
}

func consoleTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

func consoleLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	label := fmt.Sprintf("%-5s", level.CapitalString())
	if colors {
		enc.AppendString(levelColor(level) + label + colorReset)
		return
	}
	enc.AppendString(label)
}

func shouldColorize() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	colorReset   = "\x1b[0m"
	colorCyan    = "\x1b[36m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorRed     = "\x1b[31m"
	colorMagenta = "\x1b[35m"
)

func levelColor(level zapcore.Level) string {
	switch {
	case level <= zapcore.DebugLevel:
		return colorCyan
	case level == zapcore.InfoLevel:
		return colorGreen
	case level == zapcore.WarnLevel:
		return colorYellow
	case level == zapcore.ErrorLevel:
		return colorRed
	default:
		return colorMagenta
	}
}
