package util

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logMu  sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// InitLogger builds the process logger. Console output is human readable,
// otherwise one JSON object per line is written to stdout.
func InitLogger(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	setLogger(l)
	return l
}

// Logger returns a copy of the process logger. Swapping the process logger
// later does not affect a copy already handed out.
func Logger() *zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	l := logger
	return &l
}

func setLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// SetLoggerForTest swaps the process logger and returns a func restoring the previous one.
func SetLoggerForTest(l zerolog.Logger) func() {
	prev := *Logger()
	setLogger(l)
	return func() { setLogger(prev) }
}
