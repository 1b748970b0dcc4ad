package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a console logger writing coloured records to w at the given
// level. Colours are dropped when w is not the terminal's stderr or stdout.
func New(level slog.Level, w io.Writer) *slog.Logger {
	noColor := true
	if file, ok := w.(*os.File); ok && (file == os.Stderr || file == os.Stdout) {
		noColor = os.Getenv("NO_COLOR") != ""
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}
