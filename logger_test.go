package blobsdf

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	require.NotNil(t, l)
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		assert.False(t, l.Enabled(context.Background(), level), "level %v", level)
	}
	h := nopHandler{}
	assert.NoError(t, h.Handle(context.Background(), slog.Record{}))
	assert.IsType(t, nopHandler{}, h.WithGroup("g"))
	assert.IsType(t, nopHandler{}, h.WithAttrs([]slog.Attr{slog.Int("k", 1)}))
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	var bld Builder
	root := bld.Union(bld.NewSphere(ms3.Vec{}, 1, 1), bld.NewBox(ms3.Vec{X: 2}, ms3.Vec{X: 1, Y: 1, Z: 1}, 2))
	_, err := Compile(bld.Pool(), root)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compiled tree")
	assert.Contains(t, buf.String(), "primitives=2")

	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}
