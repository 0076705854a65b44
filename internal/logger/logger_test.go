package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZap_ModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("orchestrator", "query submitted", map[string]interface{}{"folder": "다중주택"})
	l.Debug("selection", "no details", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "query submitted", entries[0].Message)
	assert.Equal(t, "orchestrator", ctx["module"])
	assert.Equal(t, map[string]interface{}{"folder": "다중주택"}, ctx["details"])

	assert.Equal(t, "selection", entries[1].ContextMap()["module"])
}

func TestError_AttachesErrorField(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Error("backend", "request failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permitdesk.log")

	l := New(Config{FilePath: path})
	l.Info("cmd", "started", map[string]interface{}{"base_url": "http://localhost:8000"})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.Contains(line, `"message":"started"`), "got %s", line)
	assert.True(t, strings.Contains(line, `"module":"cmd"`), "got %s", line)
}

func TestNew_NoSinksIsNop(t *testing.T) {
	l := New(Config{})
	// Must not panic or write anywhere.
	l.Warn("cmd", "dropped", nil)
	assert.NoError(t, l.Sync())
}
