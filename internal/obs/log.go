package obs

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout

	loggerOnce sync.Once
	logger     *slog.Logger
)

// writerProxy forwards writes to the current output so tests can capture
// log lines without rebuilding the handler.
type writerProxy struct{}

func (writerProxy) Write(p []byte) (int, error) {
	outMu.Lock()
	defer outMu.Unlock()
	return out.Write(p)
}

// Logger returns the shared structured JSON logger used across the service.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = slog.New(slog.NewJSONHandler(writerProxy{}, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return logger
}

// SetOutput redirects log output. Intended for tests.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
}

// Err wraps an error as a log attribute.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
