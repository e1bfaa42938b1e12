package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNamed(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.InfoLevel)
	child := lggr.Named("controller").Named("reducer")

	child.Infow("session changed", "status", "authenticated")
	child.Debug("dropped")

	assert.Equal(t, "controller.reducer", child.Name())
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session changed", entries[0].Message)
	assert.Equal(t, "controller.reducer", entries[0].LoggerName)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    zapcore.Level
		wantErr string
	}{
		{name: "empty defaults to info", give: "", want: zapcore.InfoLevel},
		{name: "debug", give: "debug", want: zapcore.DebugLevel},
		{name: "warn", give: "warn", want: zapcore.WarnLevel},
		{name: "unknown", give: "loud", wantErr: "unrecognized level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_NewConsole(t *testing.T) {
	t.Parallel()

	cfg := Config{Level: zapcore.WarnLevel, Console: true}
	lggr, err := cfg.New()
	require.NoError(t, err)
	require.NotNil(t, lggr)
	assert.Empty(t, lggr.Name())
}

func TestConfig_NewAtomic(t *testing.T) {
	t.Parallel()

	cfg := Config{Level: zapcore.WarnLevel, Console: true}
	lggr, level, err := cfg.NewAtomic()
	require.NoError(t, err)
	require.NotNil(t, lggr)
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, level.Enabled(zapcore.DebugLevel))
}
