package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWithDefaults(t *testing.T) {
	log, err := New(&Config{Console: true})
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, log.Level())
}

func TestSetLevel(t *testing.T) {
	log, err := NewProduction()
	require.NoError(t, err)

	log.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, log.Level())
	log.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, log.Level())
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	log, err := New(&Config{
		Level:  InfoLevel,
		Format: "json",
		File:   file,
	})
	require.NoError(t, err)

	log.Info("写入文件", zap.String("key", "value"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	log, err := New(&Config{
		Level:  WarnLevel,
		Format: "json",
		File:   file,
	})
	require.NoError(t, err)

	log.Info("应被过滤")
	log.Warn("应被记录")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "应被过滤")
	assert.Contains(t, string(data), "应被记录")
}

func TestWith(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	log, err := New(&Config{Level: InfoLevel, Format: "json", File: file})
	require.NoError(t, err)

	child := log.With(zap.String("component", "ws"))
	child.Info("带字段")
	require.NoError(t, child.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"ws"`)
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{DebugLevel, "debug"},
		{InfoLevel, "info"},
		{WarnLevel, "warn"},
		{ErrorLevel, "error"},
		{FatalLevel, "fatal"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); !strings.EqualFold(got, tt.want) {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info("丢弃")
		log.Error("丢弃")
		_ = log.Sync()
	})
}
