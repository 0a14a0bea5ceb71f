package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).With(map[string]interface{}{"taskType": "discover-case-assets"})

	log.Debug("debug msg", nil)
	log.Info("info msg", map[string]interface{}{"caseId": "case-1"})
	log.Warn("warn msg", map[string]interface{}{"error": errors.New("boom")})
	log.WithError(errors.New("fatal")).Error("error msg", nil)

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "discover-case-assets", entries[0].ContextMap()["taskType"])

	assert.Equal(t, "case-1", entries[1].ContextMap()["caseId"])
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
	assert.Equal(t, "fatal", entries[3].ContextMap()["error"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestWithFields_EmptyReturnsSameLogger(t *testing.T) {
	base := NewNoOpLogger()
	assert.Same(t, base, base.WithFields(nil))
}

func TestNew_Formats(t *testing.T) {
	assert.NotNil(t, New("debug", "json"))
	assert.NotNil(t, New("info", "console"))
	assert.NotNil(t, NewWithOutput("warn", "json", "stderr"))
	assert.NotNil(t, NewStructured("error", "json"))
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger(t)
	log.Info("hello from test", map[string]interface{}{"k": "v"})
}
