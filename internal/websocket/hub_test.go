package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tasks-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages chan []byte
	fail     bool
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: make(chan []byte, 8)}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) next(t *testing.T) Event {
	t.Helper()
	select {
	case raw := <-c.messages:
		var e Event
		require.NoError(t, json.Unmarshal(raw, &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Event{}
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestPublishReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	a, b := newFakeConn(), newFakeConn()
	hub.Register(a)
	hub.Register(b)

	hub.Publish(EventTaskCreated, 5, &models.Task{ID: 5, Title: "Buy milk"})

	for _, conn := range []*fakeConn{a, b} {
		e := conn.next(t)
		assert.Equal(t, EventTaskCreated, e.Event)
		assert.Equal(t, 5, e.TaskID)
		require.NotNil(t, e.Task)
		assert.Equal(t, "Buy milk", e.Task.Title)
	}
}

func TestFailingClientIsDropped(t *testing.T) {
	hub, _ := startHub(t)
	bad, good := newFakeConn(), newFakeConn()
	bad.fail = true
	hub.Register(bad)
	hub.Register(good)

	hub.Publish(EventTaskDeleted, 1, nil)
	assert.Equal(t, EventTaskDeleted, good.next(t).Event)
	assert.Eventually(t, bad.isClosed, time.Second, 10*time.Millisecond)

	// the hub keeps serving after dropping a client
	hub.Publish(EventTaskUpdated, 2, nil)
	assert.Equal(t, EventTaskUpdated, good.next(t).Event)
}

func TestUnregisterClosesConn(t *testing.T) {
	hub, _ := startHub(t)
	conn := newFakeConn()
	client := hub.Register(conn)
	hub.Unregister(client)
	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)

	// a second unregister is harmless
	hub.Unregister(client)
}

func TestStoppedHub(t *testing.T) {
	hub, cancel := startHub(t)
	conn := newFakeConn()
	hub.Register(conn)
	cancel()

	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)
	assert.Nil(t, hub.Register(newFakeConn()))
	hub.Unregister(nil)
}

func TestPublishOnNilHub(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(EventTaskCreated, 1, nil) })
}
