package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func installObserver(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(AtomicLevel())
	SetLogger(zap.New(core), cats)
	t.Cleanup(func() {
		SetLogger(nil, nil)
		_ = SetLevel("info")
	})
	return logs
}

func TestGet_UsesCategoryName(t *testing.T) {
	logs := installObserver(t, nil)

	Supervisor("task %s started", "abc")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "supervisor", entries[0].LoggerName)
	assert.Equal(t, "task abc started", entries[0].Message)
}

func TestCategoryToggle(t *testing.T) {
	logs := installObserver(t, map[string]bool{"bridge": false})

	Bridge("dropped")
	Agent("kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.False(t, IsCategoryEnabled(CategoryBridge))
	assert.True(t, IsCategoryEnabled(CategoryWorld))
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	logs := installObserver(t, nil)

	require.NoError(t, SetLevel("info"))
	AgentDebug("hidden")
	assert.Equal(t, 0, logs.Len())

	require.NoError(t, SetLevel("debug"))
	AgentDebug("visible")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "debug", Level())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		err  bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestUninitialized_IsNoop(t *testing.T) {
	SetLogger(nil, nil)
	assert.NotPanics(t, func() {
		Get(CategoryDecision).Error("nothing listens %d", 1)
		Sync()
	})
}
