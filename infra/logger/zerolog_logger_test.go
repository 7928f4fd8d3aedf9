package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test", "debug")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestComponentLevelFiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	l := newZerolog(&buf, "mqtt", "warning")
	l.Infof("dropped")
	l.Warnf("kept %d", 1)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept 1", rec["message"])
	assert.Equal(t, "mqtt", rec["component"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"WARNING":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"CRITICAL": zerolog.FatalLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetDefaultLevel(t *testing.T) {
	require.NoError(t, SetDefaultLevel("error"))
	defer func() { require.NoError(t, SetDefaultLevel("info")) }()
	var buf bytes.Buffer
	l := newZerolog(&buf, "x", "")
	l.Warnf("hidden")
	assert.Zero(t, buf.Len())
	assert.Error(t, SetDefaultLevel("nope"))
}

func TestOpenFileTeesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "carbridge.log")
	closer, err := OpenFile(FileConfig{Path: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l := NewZerologLogger("file", "info")
	l.Infof("written to %s", "file")
	require.NoError(t, closer.Close())
	assert.Nil(t, fileWriter())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "written to file", rec["message"])
	assert.Equal(t, "file", rec["component"])
}

func TestOpenFileRequiresPath(t *testing.T) {
	_, err := OpenFile(FileConfig{})
	assert.Error(t, err)
}
