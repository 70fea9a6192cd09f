package scheduler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gridstorm/internal/scheduler"
)

func TestFlushRunsFIFO(t *testing.T) {
	q := scheduler.New()

	var order []string
	add := func(name string) func() error {
		return func() error { order = append(order, name); return nil }
	}

	require.NoError(t, q.Enqueue("a", add("a")))
	require.NoError(t, q.Enqueue("b", func() error {
		order = append(order, "b")
		return q.Enqueue("d", add("d"))
	}))
	require.NoError(t, q.Enqueue("c", add("c")))
	assert.Equal(t, 3, q.Len())

	require.NoError(t, q.Flush())
	assert.Equal(t, []string{"a", "b", "c", "d"}, order, "tasks queued during a flush run after earlier ones")
	assert.Equal(t, 0, q.Len())
}

func TestFlushIsolatesFailures(t *testing.T) {
	q := scheduler.New()
	boom := errors.New("boom")

	var ran []string
	require.NoError(t, q.Enqueue("fail", func() error { return boom }))
	require.NoError(t, q.Enqueue("panic", func() error { panic("kaboom") }))
	require.NoError(t, q.Enqueue("ok", func() error { ran = append(ran, "ok"); return nil }))

	err := q.Flush()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, scheduler.ErrTaskPanic)
	assert.Equal(t, []string{"ok"}, ran)

	stats := q.Stats()
	assert.Equal(t, uint64(3), stats.Processed)
	assert.Equal(t, uint64(2), stats.Failed)
	assert.Equal(t, uint64(1), stats.Panicked)
}

func TestQueueBoundsAndClose(t *testing.T) {
	q := scheduler.New(scheduler.WithQueueSize(1))
	noop := func() error { return nil }

	require.NoError(t, q.Enqueue("one", noop))
	assert.ErrorIs(t, q.Enqueue("two", noop), scheduler.ErrQueueFull)
	assert.Equal(t, uint64(1), q.Stats().Dropped)

	q.Close()
	assert.Equal(t, 0, q.Len())
	assert.ErrorIs(t, q.Enqueue("three", noop), scheduler.ErrClosed)
}

func TestNotifyOnFirstTask(t *testing.T) {
	var notified int
	q := scheduler.New(scheduler.WithNotify(func() { notified++ }))
	noop := func() error { return nil }

	require.NoError(t, q.Enqueue("a", noop))
	require.NoError(t, q.Enqueue("b", noop))
	assert.Equal(t, 1, notified)

	require.NoError(t, q.Flush())
	require.NoError(t, q.Enqueue("c", noop))
	assert.Equal(t, 2, notified)
}

func TestNestedFlushIsNoop(t *testing.T) {
	q := scheduler.New()
	var inner error = errors.New("unset")
	require.NoError(t, q.Enqueue("outer", func() error {
		inner = q.Flush()
		return nil
	}))
	require.NoError(t, q.Flush())
	assert.NoError(t, inner)
}
