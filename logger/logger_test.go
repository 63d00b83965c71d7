package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0},
		{name: "Console output mode", jsonOutput: false, verbosity: 0},
		{name: "Console debug", jsonOutput: false, verbosity: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}
			want := VerbosityToLevel(tt.verbosity)
			if !Logger.Desugar().Core().Enabled(want) {
				t.Errorf("level %s not enabled", want)
			}

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestCleanup(t *testing.T) {
	Logger = zap.NewNop().Sugar()
	Cleanup()

	Logger = nil
	Cleanup() // must not panic
	Logger = zap.NewNop().Sugar()
}

func TestLoggingFunctions_NilSafe(t *testing.T) {
	Logger = nil
	defer func() { Logger = zap.NewNop().Sugar() }()

	Infow("info", FieldCount, 1)
	Warnw("warn", FieldCount, 1)
	Errorw("error", FieldCount, 1)
	Debugw("debug", FieldCount, 1)
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{VerbosityTrace, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
	assert.Equal(t, "Trace (-vvv+)", LevelName(5))
}

func TestShouldOutput(t *testing.T) {
	assert.True(t, ShouldOutput(0, OutputResults))
	assert.False(t, ShouldOutput(0, OutputProgress))
	assert.True(t, ShouldOutput(1, OutputIndexes))
	assert.False(t, ShouldOutput(2, OutputEvents))
	assert.True(t, ShouldOutput(3, OutputEvents))
	assert.Equal(t, "metrics", CategoryName(OutputMetrics))
	assert.Equal(t, "unknown", CategoryName(OutputCategory(99)))
}

func TestEnabledCategories(t *testing.T) {
	tests := []struct {
		verbosity int
		want      []string
	}{
		{0, []string{"results", "errors", "status"}},
		{1, []string{"results", "errors", "status", "progress", "indexes"}},
		{3, []string{"results", "errors", "status", "progress", "indexes", "config", "metrics", "events"}},
	}
	for _, tt := range tests {
		t.Run(LevelName(tt.verbosity), func(t *testing.T) {
			assert.Equal(t, tt.want, EnabledCategories(tt.verbosity))
		})
	}
	assert.Equal(t, "Trace (-vvv+)", LevelName(5))
}

func TestCompactEncoder(t *testing.T) {
	enc := newCompactEncoder()
	ent := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2024, 1, 1, 13, 4, 35, 0, time.UTC),
		LoggerName: "pop.manager",
		Message:    "Index added",
	}

	buf, err := enc.EncodeEntry(ent, []zapcore.Field{
		zap.String(FieldIndexKey, "adults"),
		zap.Int(FieldMembers, 412),
	})
	require.NoError(t, err)
	line := buf.String()

	assert.Contains(t, line, "13:04:35")
	assert.Contains(t, line, "p.manager")
	assert.Contains(t, line, "Index added")
	assert.Contains(t, line, "index_key=")
	assert.Contains(t, line, "adults")
	assert.Contains(t, line, "412")
	assert.NotContains(t, line, "INFO")
}

func TestCompactEncoder_WithFields(t *testing.T) {
	enc := newCompactEncoder()
	enc.AddString(FieldComponent, "router")
	clone := enc.Clone()

	buf, err := clone.EncodeEntry(zapcore.Entry{Level: zapcore.WarnLevel, Message: "slow"},
		[]zapcore.Field{zap.Error(errors.New("boom"))})
	require.NoError(t, err)

	line := buf.String()
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "component=")
	assert.Contains(t, line, "router")
	assert.Contains(t, line, "boom")
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "p.manager", abbreviateName("pop.manager"))
	assert.Equal(t, "simulate", abbreviateName("simulate"))
	assert.Equal(t, ".x", abbreviateName(".x"))
}
