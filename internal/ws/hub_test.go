package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) envelopes(t *testing.T) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) events(t *testing.T) []string {
	t.Helper()
	var names []string
	for _, env := range f.envelopes(t) {
		names = append(names, env.Event)
	}
	return names
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubPublishSkipsExcept(t *testing.T) {
	hub := NewHub(discardLogger())
	a1, a2, b := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("a", a1)
	hub.Register("a", a2)
	hub.Register("b", b)

	assert.Equal(t, 2, hub.Count("a"))
	assert.Equal(t, 3, hub.Connections())

	assert.Equal(t, 1, hub.Publish("a", []byte("x"), a1))
	assert.Len(t, a1.frames, 0)
	assert.Len(t, a2.frames, 1)
	assert.Len(t, b.frames, 0)

	assert.Equal(t, 0, hub.Publish("nobody", []byte("x"), nil))
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub(discardLogger())
	good, bad := &fakeConn{}, &fakeConn{sendErr: errors.New("broken pipe")}
	hub.Register("a", good)
	hub.Register("a", bad)

	assert.Equal(t, 1, hub.Publish("a", []byte("x"), nil))
	assert.True(t, bad.closed)
	assert.False(t, good.closed)
	assert.Equal(t, 1, hub.Count("a"))
}

func TestHubUnregisterRemovesEmptyChannel(t *testing.T) {
	hub := NewHub(discardLogger())
	c := &fakeConn{}
	hub.Register("a", c)
	hub.Unregister("a", c)
	hub.Unregister("a", c)
	assert.Equal(t, 0, hub.Count("a"))
	assert.Equal(t, 0, hub.Connections())
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub(discardLogger())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			hub.Register("a", c)
			hub.Publish("a", []byte("x"), c)
			hub.Unregister("a", c)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Count("a"))
}
