package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		env           string
		expectedLevel slog.Level
	}{
		{
			name:          "local environment",
			env:           EnvLocal,
			expectedLevel: slog.LevelDebug,
		},
		{
			name:          "dev environment",
			env:           EnvDev,
			expectedLevel: slog.LevelDebug,
		},
		{
			name:          "prod environment",
			env:           EnvProd,
			expectedLevel: slog.LevelInfo,
		},
		{
			name:          "unknown environment",
			env:           "staging",
			expectedLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.env)
			require.NotNil(t, log)

			ctx := context.Background()
			assert.Equal(t, tt.expectedLevel <= slog.LevelDebug, log.Enabled(ctx, slog.LevelDebug))
			assert.True(t, log.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	require.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
