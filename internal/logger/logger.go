// Package logger предоставляет логирование с префиксом сервиса и асинхронной записью,
// чтобы не блокировать обработку событий. Запись идёт через zerolog (консоль или JSON).
// Поддерживается логирование времени выполнения функций.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const asyncBufferSize = 8192

type entry struct {
	level zerolog.Level
	svc   string
	msg   string
}

var (
	prefix string
	out    zerolog.Logger
	ch     chan entry
	once   sync.Once
	// syncMode — запись без воркера (тесты).
	syncMode bool
	mu       sync.RWMutex
)

func newZerolog(w io.Writer) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug", "trace":
		lvl = zerolog.DebugLevel
	case "warn", "warning":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	if os.Getenv("LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func initWorker() {
	mu.Lock()
	out = newZerolog(os.Stderr)
	mu.Unlock()
	ch = make(chan entry, asyncBufferSize)
	go func() {
		for e := range ch {
			write(e)
		}
	}()
}

func write(e entry) {
	mu.RLock()
	zl := out
	mu.RUnlock()
	ev := zl.WithLevel(e.level)
	if ev == nil {
		return
	}
	if e.svc != "" {
		ev = ev.Str("svc", e.svc)
	}
	ev.Msg(e.msg)
}

func enqueue(level zerolog.Level, msg string) {
	once.Do(initWorker)
	e := entry{level: level, svc: prefix, msg: msg}
	mu.RLock()
	direct := syncMode
	mu.RUnlock()
	if direct {
		write(e)
		return
	}
	select {
	case ch <- e:
	default:
		// Буфер полон — не блокируем, теряем лог
	}
}

// SetPrefix задаёт имя сервиса для всех последующих логов (например "notifier").
func SetPrefix(p string) {
	prefix = p
}

// SetOutput перенаправляет логи в w и переключает запись в синхронный режим.
func SetOutput(w io.Writer) {
	once.Do(initWorker)
	mu.Lock()
	out = newZerolog(w)
	syncMode = true
	mu.Unlock()
}

// Flush ждёт, пока воркер допишет очередь (не дольше timeout). Вызывать перед os.Exit.
func Flush(timeout time.Duration) {
	once.Do(initWorker)
	deadline := time.Now().Add(timeout)
	for len(ch) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

// DebugEnabled сообщает, пишется ли debug-уровень (чтобы не собирать дорогие строки зря).
func DebugEnabled() bool {
	once.Do(initWorker)
	mu.RLock()
	defer mu.RUnlock()
	return out.GetLevel() <= zerolog.DebugLevel
}

// Debugf пишет отладочное сообщение (только при LOG_LEVEL=debug).
func Debugf(format string, v ...any) {
	enqueue(zerolog.DebugLevel, fmt.Sprintf(format, v...))
}

// Info пишет в log с префиксом (асинхронно).
func Info(v ...any) {
	enqueue(zerolog.InfoLevel, fmt.Sprint(v...))
}

// Infof форматирует и пишет с префиксом (асинхронно).
func Infof(format string, v ...any) {
	enqueue(zerolog.InfoLevel, fmt.Sprintf(format, v...))
}

// Warn пишет предупреждение.
func Warn(v ...any) {
	enqueue(zerolog.WarnLevel, fmt.Sprint(v...))
}

// Warnf форматирует предупреждение.
func Warnf(format string, v ...any) {
	enqueue(zerolog.WarnLevel, fmt.Sprintf(format, v...))
}

// Error пишет ошибку с префиксом (асинхронно).
func Error(v ...any) {
	enqueue(zerolog.ErrorLevel, fmt.Sprint(v...))
}

// Errorf форматирует ошибку с префиксом (асинхронно).
func Errorf(format string, v ...any) {
	enqueue(zerolog.ErrorLevel, fmt.Sprintf(format, v...))
}

// LogDuration логирует имя функции и время выполнения в миллисекундах (асинхронно).
// При LOG_LEVEL=info логирует только вызовы дольше 100ms; при LOG_LEVEL=debug — все.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	if DebugEnabled() {
		enqueue(zerolog.DebugLevel, fmt.Sprintf("fn=%s duration_ms=%d", fn, elapsed.Milliseconds()))
		return
	}
	if elapsed >= 100*time.Millisecond {
		enqueue(zerolog.InfoLevel, fmt.Sprintf("fn=%s duration_ms=%d", fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration возвращает функцию для вызова в defer: defer logger.DeferLogDuration("resolver.Message", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
