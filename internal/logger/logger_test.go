package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Environments(t *testing.T) {
	for _, env := range []string{"dev", "prod", "staging"} {
		l, err := New(env, "debug", "blueprint-paywall")
		require.NoError(t, err)
		require.NotNil(t, l)
		l.Debug("debug message")
		l.Info("info message")
	}
}

func TestNew_Level(t *testing.T) {
	l, err := New("prod", "warn", "svc")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New("prod", "nonsense", "svc")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", TraceID(ctx))
	assert.Equal(t, "trace-123", CtxField(ctx).String)

	assert.Equal(t, "", TraceID(context.Background()))
	assert.Equal(t, "unknown", CtxField(context.Background()).String)
}
