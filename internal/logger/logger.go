// Package logger is the naming server's structured logging facade: a
// small set of package-level Tracef/Debugf/Infof/Warnf/Errorf functions
// backed by log/slog, with the teacher's own custom severity formatting
// and file rotation via lumberjack.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nsfs/naming/cfg"
)

// Custom severity levels. TRACE sits below slog's built-in Debug; OFF sits
// above Error so nothing is ever enabled at that level.
const (
	LevelTrace slog.Level = slog.LevelDebug - 4
	LevelOff   slog.Level = slog.LevelError + 4
)

const timeFormat = "2006/01/02 15:04:05.000000"

var (
	mu                   sync.Mutex
	defaultLoggerFactory = &handlerFactory{format: "text"}
	defaultLevel         = new(slog.LevelVar)
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLevel, ""))
)

// Init reconfigures the default logger per c: output destination (stderr,
// or a rotated file via lumberjack if c.FilePath is set), format, and
// minimum severity. It is safe to call more than once; the most recent
// call wins.
func Init(c cfg.LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if c.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.LogRotate.MaxFileSizeMb,
			MaxBackups: c.LogRotate.BackupFileCount,
			Compress:   c.LogRotate.Compress,
		}
	}

	level := new(slog.LevelVar)
	if err := setLoggingLevel(string(c.Severity), level); err != nil {
		return err
	}

	format := c.Format
	if format == "" {
		format = "text"
	}

	defaultLoggerFactory = &handlerFactory{format: format}
	defaultLevel = level
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, level, ""))
	return nil
}

func setLoggingLevel(level string, v *slog.LevelVar) error {
	switch level {
	case "TRACE":
		v.Set(LevelTrace)
	case "DEBUG":
		v.Set(slog.LevelDebug)
	case "INFO", "":
		v.Set(slog.LevelInfo)
	case "WARNING":
		v.Set(slog.LevelWarn)
	case "ERROR":
		v.Set(slog.LevelError)
	case "OFF":
		v.Set(LevelOff)
	default:
		return fmt.Errorf("logger: unknown severity %q", level)
	}
	return nil
}

func logf(level slog.Level, format string, args ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	l.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }
func Debugf(format string, args ...any) { logf(slog.LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logf(slog.LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(slog.LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logf(slog.LevelError, format, args...) }

// handlerFactory builds the text or JSON slog.Handler the teacher's own
// logging package offers, selected by format ("text" or "json").
type handlerFactory struct {
	format string
}

func (f *handlerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	if f.format == "json" {
		return &jsonHandler{w: w, level: level, prefix: prefix}
	}
	return &textHandler{w: w, level: level, prefix: prefix}
}

func severityName(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

type textHandler struct {
	mu     sync.Mutex
	w      io.Writer
	level  *slog.LevelVar
	prefix string
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format(timeFormat), severityName(r.Level), h.prefix+r.Message)
	return err
}

func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(_ string) slog.Handler      { return h }

type jsonHandler struct {
	mu     sync.Mutex
	w      io.Writer
	level  *slog.LevelVar
	prefix string
}

func (h *jsonHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

type jsonRecord struct {
	Timestamp jsonTimestamp `json:"timestamp"`
	Severity  string        `json:"severity"`
	Message   string        `json:"message"`
}

type jsonTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanos"`
}

func (h *jsonHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := jsonRecord{
		Timestamp: jsonTimestamp{Seconds: r.Time.Unix(), Nanos: int64(r.Time.Nanosecond())},
		Severity:  severityName(r.Level),
		Message:   h.prefix + r.Message,
	}
	enc := json.NewEncoder(h.w)
	return enc.Encode(rec)
}

func (h *jsonHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *jsonHandler) WithGroup(_ string) slog.Handler      { return h }
