package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.Logr().WithName("table").Info("row added", "row", "r1")
	l.Sync()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "row added", entry[MessageKey])
	assert.Equal(t, "table", entry[ComponentKey])
	assert.Equal(t, "r1", entry["row"])
}

func TestSetLevelEnablesVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Output: &buf})
	require.NoError(t, err)

	l.Logr().V(1).Info("trace")
	assert.Zero(t, buf.Len())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, "debug", l.Level())
	l.Logr().V(1).Info("trace")
	assert.Contains(t, buf.String(), "trace")

	assert.Error(t, l.SetLevel("loud"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)

	l, err := New(Config{Format: "console", Output: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, "info", l.Level())
}

func TestContext(t *testing.T) {
	assert.Equal(t, logr.Discard(), FromContext(context.Background()))

	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), l.Logr())
	FromContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), "from context")
}
