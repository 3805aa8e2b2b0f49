package connmgr

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandle_Nil(t *testing.T) {
	var h *Handle

	assert.False(t, h.Enabled())
	assert.Nil(t, h.Client())
	assert.Equal(t, Config{}, h.Config())
	assert.Nil(t, h.Ready())
	assert.ErrorIs(t, h.WaitReady(context.Background()), ErrDisabled)
	assert.NoError(t, h.Close(context.Background()))
	assert.Equal(t, "redis(disabled)", h.String())

	assert.NotPanics(t, func() {
		h.AddListener(&eventRecorder{})
	})
}

func TestHandle_String(t *testing.T) {
	h := newLifecycle(Config{Host: "cache.internal", Port: 6380, Database: 2}, DefaultPolicy())
	assert.Equal(t, "redis(cache.internal:6380/2)", h.String())
}

func TestHandle_Close(t *testing.T) {
	_, cfg := newServer(t)

	rec := &eventRecorder{}
	registry := NewRegistry()
	h := registry.Initialize(
		WithConfig(cfg),
		WithLogger(zap.NewNop()),
		WithListener(rec),
		WithoutShutdownHook())
	waitReady(t, h)

	require.NoError(t, h.Close(context.Background()))
	assert.ErrorIs(t, h.Close(context.Background()), ErrClosed)
	assert.ErrorIs(t, h.WaitReady(context.Background()), ErrClosed)
	assert.GreaterOrEqual(t, rec.count(EventClose), 1)

	// The handle stays published, only its connection is gone.
	assert.True(t, h.Enabled())
	assert.Same(t, h, registry.Handle())
}

func TestHandle_Close_StopsConnectLoop(t *testing.T) {
	server, cfg := newServer(t)
	server.Close()

	rec := &eventRecorder{}
	registry := NewRegistry()
	h := registry.Initialize(
		WithConfig(cfg),
		WithLogger(zap.NewNop()),
		WithListener(rec),
		WithoutShutdownHook())

	require.Eventually(t, func() bool {
		return rec.count(EventReconnecting) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Close(ctx))

	select {
	case <-h.done:
	default:
		t.Fatal("connect loop still running after close")
	}

	attempts := rec.count(EventReconnecting)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, attempts, rec.count(EventReconnecting))
}

func TestHandle_Close_Timeout(t *testing.T) {
	h := newLifecycle(Config{Host: "127.0.0.1", Port: DefaultPort}, DefaultPolicy())
	// Pretend a connect loop is running and never returns.
	h.started.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := h.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.isClosed())

	close(h.done)
	assert.ErrorIs(t, h.Close(context.Background()), ErrClosed)
}

func TestHandle_ReadOnlyReply_RetryBound(t *testing.T) {
	server, cfg := newServer(t)

	rec := &eventRecorder{}
	registry := NewRegistry()
	shutdownOnCleanup(t, registry)

	h := registry.Initialize(
		WithConfig(cfg),
		WithLogger(zap.NewNop()),
		WithListener(rec),
		WithoutShutdownHook())
	waitReady(t, h)

	const script = `redis.call('INCR', KEYS[1])
return redis.error_reply('READONLY You can not write against a read only replica.')`

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := h.Client().Eval(ctx, script, []string{"attempts"}).Err()
	require.ErrorContains(t, err, "READONLY")

	val, err := server.Get("attempts")
	require.NoError(t, err)
	executed, err := strconv.Atoi(val)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, executed, 1)
	assert.LessOrEqual(t, executed, DefaultPolicy().MaxRetries+1)

	assert.Equal(t, 1, rec.count(EventReconnecting))
	reconnecting, ok := rec.first(EventReconnecting)
	require.True(t, ok)
	assert.Equal(t, 1, reconnecting.Attempt)
	assert.Equal(t, 50*time.Millisecond, reconnecting.Delay)

	// The next command runs on a new connection, which is announced as ready.
	require.NoError(t, h.Client().Ping(ctx).Err())
	assert.Equal(t, 2, rec.count(EventReady))

	val, err = server.Get("attempts")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(executed), val)
}

func TestHandle_ReadyAnnouncedOnce(t *testing.T) {
	_, cfg := newServer(t)

	rec := &eventRecorder{}
	registry := NewRegistry()
	shutdownOnCleanup(t, registry)

	h := registry.Initialize(
		WithConfig(cfg),
		WithLogger(zap.NewNop()),
		WithListener(rec),
		WithoutShutdownHook())
	waitReady(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Holding two dedicated connections forces the pool to dial a second one.
	first, second := h.Client().Conn(), h.Client().Conn()
	defer first.Close()
	defer second.Close()
	require.NoError(t, first.Ping(ctx).Err())
	require.NoError(t, second.Ping(ctx).Err())

	assert.GreaterOrEqual(t, rec.count(EventConnect), 2)
	assert.Equal(t, 1, rec.count(EventReady))
}
