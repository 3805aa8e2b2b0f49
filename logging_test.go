package connmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogListener(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	listener := LogListener(otelzap.New(zap.New(core)))

	listener.OnEvent(Event{Kind: EventConnect, Addr: "localhost:6379"})
	listener.OnEvent(Event{Kind: EventReady, Addr: "localhost:6379"})
	listener.OnEvent(Event{Kind: EventError, Addr: "localhost:6379", Err: errors.New("boom")})
	listener.OnEvent(Event{Kind: EventClose, Addr: "localhost:6379"})
	listener.OnEvent(Event{Kind: EventReconnecting, Addr: "localhost:6379", Attempt: 2, Delay: 100 * time.Millisecond})

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)

	expected := []struct {
		level   zapcore.Level
		message string
	}{
		{zap.InfoLevel, "[Redis] Connected to Redis"},
		{zap.InfoLevel, "[Redis] Redis client ready"},
		{zap.ErrorLevel, "[Redis] Redis error"},
		{zap.WarnLevel, "[Redis] Redis connection closed"},
		{zap.InfoLevel, "[Redis] Reconnecting to Redis..."},
	}
	for i, want := range expected {
		assert.Equal(t, want.level, entries[i].Level)
		assert.Equal(t, want.message, entries[i].Message)
		assert.Equal(t, "localhost:6379", entries[i].ContextMap()["addr"])
	}

	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
	assert.Equal(t, int64(2), entries[4].ContextMap()["attempt"])
	assert.Equal(t, 100*time.Millisecond, entries[4].ContextMap()["delay"])
}

func TestLogListener_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogListener(nil).OnEvent(Event{Kind: EventError, Err: errors.New("boom")})
	})
}

func TestLogListener_RecordsOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	core, logs := observer.New(zap.DebugLevel)
	listener := LogListener(otelzap.New(zap.New(core)))

	ctx, span := tp.Tracer("connmgr-test").Start(context.Background(), "set")
	listener.OnEvent(Event{
		Kind: EventError,
		Addr: "localhost:6379",
		Err:  errors.New("READONLY replica"),
		ctx:  ctx,
	})
	span.End()

	require.Equal(t, 1, logs.Len())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.NotEmpty(t, spans[0].Events())

	found := false
	for _, ev := range spans[0].Events() {
		for _, attr := range ev.Attributes {
			if attr.Value.AsString() == "[Redis] Redis error" {
				found = true
			}
		}
	}
	assert.True(t, found, "error log expected on the command span")
}

func TestEvent_Context(t *testing.T) {
	assert.Equal(t, context.Background(), Event{}.Context())

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	assert.Equal(t, ctx, Event{ctx: ctx}.Context())
}
