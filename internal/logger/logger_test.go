package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxAttrsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	ctx := Ctx(context.Background(), slog.String("episode_id", "abc-ep"))
	ctx = Ctx(ctx, slog.String("stage", "tags"))
	l.InfoContext(ctx, "stage finished")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stage finished", line["msg"])
	assert.Equal(t, "abc-ep", line["episode_id"])
	assert.Equal(t, "tags", line["stage"])
}

func TestCtxDoesNotLeakIntoParent(t *testing.T) {
	parent := Ctx(context.Background(), slog.String("a", "1"))
	_ = Ctx(parent, slog.String("b", "2"))

	assert.Len(t, Attrs(parent), 1)
}

func TestWithAttrsKeepsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json").With("component", "worker")

	l.InfoContext(Ctx(context.Background(), slog.String("feed_id", "f-fd")), "hi")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "worker", line["component"])
	assert.Equal(t, "f-fd", line["feed_id"])
}
