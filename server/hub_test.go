package server

import (
	"context"
	"testing"
	"time"

	"github.com/TFMV/topicweb/metrics"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	hub := NewHub(zap.NewNop(), reg)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub, reg
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, reg := startHub(t)

	client := &Client{id: "slow", hub: hub, send: make(chan []byte, 1), logger: zap.NewNop()}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte("first"))
	hub.Broadcast([]byte("second"))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	var m dto.Metric
	require.NoError(t, reg.StreamDropped.Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())

	msg, ok := <-client.send
	assert.True(t, ok)
	assert.Equal(t, "first", string(msg))
	_, ok = <-client.send
	assert.False(t, ok, "send channel should be closed after eviction")
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub, _ := startHub(t)

	client := &Client{id: "gone", hub: hub, send: make(chan []byte, 1), logger: zap.NewNop()}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- client
	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-client.send
	assert.False(t, ok)
}
