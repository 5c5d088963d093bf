// Package logging provides the leveled, optionally colored logger used by
// every command. It is a thin printf-style facade over zap: a colored console
// core on stdout, errors on stderr, and a plain core for the optional log
// file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/campaigndelta/internal/config"
	"github.com/backmassage/campaigndelta/internal/term"
)

// SuccessLevel sits outside zap's range so it is never filtered by verbosity.
const SuccessLevel = zapcore.Level(-2)

const timeLayout = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	zl   *zap.Logger
	file *os.File
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile.
// Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	return newLogger(cfg, os.Stdout, os.Stderr)
}

// Nop returns a Logger that discards everything. Intended for tests.
func Nop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func newLogger(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	l := &Logger{}

	floor := zapcore.InfoLevel
	if cfg.Verbose {
		floor = zapcore.DebugLevel
	}
	console := zapcore.NewConsoleEncoder(encoderConfig(colorLevelEncoder))

	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.AddSync(stdout), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl == SuccessLevel || (lvl >= floor && lvl < zapcore.ErrorLevel)
		})),
		zapcore.NewCore(console, zapcore.AddSync(stderr), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		})),
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		plain := zapcore.NewConsoleEncoder(encoderConfig(plainLevelEncoder))
		cores = append(cores, zapcore.NewCore(plain, zapcore.AddSync(f), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl == SuccessLevel || lvl >= floor
		})))
	}

	l.zl = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

func encoderConfig(levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      levelEnc,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func levelLabel(lvl zapcore.Level) (label, color string) {
	switch lvl {
	case SuccessLevel:
		return "SUCCESS", term.Green
	case zapcore.DebugLevel:
		return "DEBUG", term.Cyan
	case zapcore.InfoLevel:
		return "INFO", term.Blue
	case zapcore.WarnLevel:
		return "WARN", term.Yellow
	default:
		return "ERROR", term.Red
	}
}

func colorLevelEncoder(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	label, color := levelLabel(lvl)
	enc.AppendString(term.Paint(color, "["+label+"]"))
}

func plainLevelEncoder(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	label, _ := levelLabel(lvl)
	enc.AppendString("[" + label + "]")
}

// Close flushes the cores and closes the log file if one was opened.
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) log(lvl zapcore.Level, format string, args []interface{}) {
	if ce := l.zl.Check(lvl, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, format, args)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.log(SuccessLevel, format, args)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, format, args)
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, format, args)
}

// Debug logs at DEBUG level (cyan); dropped unless cfg.Verbose was set.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, format, args)
}
