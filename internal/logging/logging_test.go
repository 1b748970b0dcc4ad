package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	var out bytes.Buffer
	logger := New(slog.LevelInfo, &out)

	logger.Debug("hidden")
	logger.Info("schedule built", slog.Int("placed", 12))

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "schedule built")
	assert.Contains(t, out.String(), "placed=12")
	assert.NotContains(t, out.String(), "\x1b[", "buffers never receive colour codes")
}
