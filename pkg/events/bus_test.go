package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncWriter guards a buffer across the router goroutine and the test.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestBusReporter_EmitsNDJSONInOrder(t *testing.T) {
	bus, err := NewInMemoryBus()
	require.NoError(t, err)

	out := &syncWriter{}
	bus.AddHandler("ndjson", TopicChecks, NDJSONHandler(out))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	<-bus.Running()

	rep := NewBusReporter(bus.Publisher)
	rep.CheckStarted(1, 2, "tcp://db:5432")
	rep.Attempt("tcp://db:5432", 1, "connection refused")
	rep.Ready("tcp://db:5432", 2)
	rep.AllReady(2)

	cancel()
	require.NoError(t, <-done)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, KindCheckStarted, first.Kind)
	require.Equal(t, "tcp://db:5432", first.Target)
	require.Equal(t, 1, first.Index)
	require.Equal(t, 2, first.Total)
	require.False(t, first.At.IsZero())

	var last Event
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	require.Equal(t, KindAllReady, last.Kind)
	require.Equal(t, 2, last.Total)
}

func TestBusReporter_FailedEventCarriesCode(t *testing.T) {
	bus, err := NewInMemoryBus()
	require.NoError(t, err)

	out := &syncWriter{}
	bus.AddHandler("ndjson", TopicChecks, NDJSONHandler(out))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	<-bus.Running()

	rep := NewBusReporter(bus.Publisher)
	rep.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	rep.Failed("tcp://db:5432", "script timeout exceeded", 251)

	cancel()
	require.NoError(t, <-done)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &ev))
	require.Equal(t, KindFailed, ev.Kind)
	require.Equal(t, 251, ev.Code)
	require.Equal(t, "script timeout exceeded", ev.Reason)
	require.Equal(t, 2024, ev.At.Year())
}
