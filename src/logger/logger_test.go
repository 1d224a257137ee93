package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"infra_crew/src/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	err := InitLoggerWithWriter(model.LogConfig{Level: "info", Format: "json", TimeFormat: "unix"}, &buf)
	require.NoError(t, err)

	Logger.Info().Str("component", "test").Msg("hello")
	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLoggerWithWriter(model.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestInitLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	err := InitLogger(model.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithWriter(model.LogConfig{Level: "debug", Format: "json"}, &buf))

	l := Component("aaosa")
	l.Debug().Msg("phase done")
	assert.Contains(t, buf.String(), `"component":"aaosa"`)
}
