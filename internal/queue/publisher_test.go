package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never speaks AMQP.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublisher_StalledBrokerDoesNotBlock(t *testing.T) {
	p := newPublisher(silentBroker(t), nil, 300*time.Millisecond, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		start := time.Now()
		err := p.Publish(ctx, FulfillmentRecorded{SessionID: "cs_stall", Role: "architect", Source: SourceWebhook})
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 200*time.Millisecond)
	}

	start := time.Now()
	require.NoError(t, p.Close())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPublisher_BufferFull(t *testing.T) {
	p := newPublisher(silentBroker(t), nil, time.Second, 1)
	t.Cleanup(func() { _ = p.Close() })

	// The sender holds at most one event while stuck dialing, so a
	// buffer of one fills within a few calls.
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = p.Publish(context.Background(), FulfillmentRecorded{SessionID: "cs_full"})
	}
	assert.ErrorIs(t, err, ErrPublisherBusy)
}

func TestPublisher_Closed(t *testing.T) {
	p := newPublisher(silentBroker(t), nil, 100*time.Millisecond, 4)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), FulfillmentRecorded{SessionID: "cs_late"})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
