package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"polyform-sync/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		wantDebug bool
	}{
		{name: "local environment", env: config.EnvLocal, wantDebug: true},
		{name: "dev environment", env: config.EnvDev, wantDebug: true},
		{name: "prod environment", env: config.EnvProd, wantDebug: false},
		{name: "unknown environment", env: "staging", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.env)
			require.NotNil(t, logger)
			ctx := context.Background()
			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestWithLevel(t *testing.T) {
	ctx := context.Background()

	warn := WithLevel(config.EnvProd, "warn")
	assert.False(t, warn.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warn.Enabled(ctx, slog.LevelWarn))

	fallback := WithLevel(config.EnvProd, "loud")
	assert.True(t, fallback.Enabled(ctx, slog.LevelInfo))
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With(slog.String("component", "hub"))

	log.Info("room opened", slog.String("space_id", "s1"), Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "room opened")
	assert.Contains(t, out, `"component": "hub"`)
	assert.Contains(t, out, `"space_id": "s1"`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
