package rabbitmq

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	// Nothing listens on port 1; every dial fails immediately.
	return &Config{
		Host:          "127.0.0.1",
		Port:          1,
		User:          "guest",
		Password:      "guest",
		VHost:         "/",
		QueueName:     "render_jobs",
		QueueDurable:  true,
		RetryInterval: 5 * time.Millisecond,
	}
}

func TestConnect_RetriesUntilContextDone(t *testing.T) {
	// The connect loop has no attempt cap: it keeps redialing at the
	// fixed interval and only stops when the context is done.
	var logs bytes.Buffer
	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := client.Connect(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond,
		"connect must keep retrying until the deadline")

	attempts := strings.Count(logs.String(), "Failed to connect to RabbitMQ")
	assert.GreaterOrEqual(t, attempts, 2, "expected repeated dial attempts")

	assert.False(t, client.IsConnected())
}

func TestConnect_CancelStopsRetrying(t *testing.T) {
	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- client.Connect(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Connect did not return after cancel")
	}
}

func TestPublish_FailsFastWhenDisconnected(t *testing.T) {
	// The adapter never buffers: without an open channel a publish is
	// an immediate error, not a blocked call.
	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err := client.Publish(context.Background(), []byte(`{"jobId":"J1"}`), "application/json")
	require.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestConsume_FailsWhenDisconnected(t *testing.T) {
	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	deliveries, err := client.Consume("worker-test")
	require.ErrorIs(t, err, ErrChannelUnavailable)
	assert.Nil(t, deliveries)
}

func TestClose_BeforeConnect(t *testing.T) {
	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}
