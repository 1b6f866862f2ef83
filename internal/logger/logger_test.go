package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFieldsAccumulates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := log
	log = zap.New(core)
	t.Cleanup(func() { log = previous })

	ctx := WithFields(context.Background(), zap.String("run_id", "01HX"))
	ctx = WithFields(ctx, zap.String("pipeline", "casts"))

	InfoCtx(ctx, "page fetched", zap.Int("records", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "01HX", fields["run_id"])
	assert.Equal(t, "casts", fields["pipeline"])
	assert.Equal(t, int64(3), fields["records"])
}

func TestDefaultLoggerIsUsableBeforeInitialize(t *testing.T) {
	assert.NotPanics(t, func() {
		WarnCtx(context.Background(), "not initialized")
		Info("still fine")
	})
}
