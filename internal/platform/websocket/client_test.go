package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory Conn for tests.
type fakeConn struct {
	mu       sync.Mutex
	incoming chan []byte
	written  [][]byte
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 8)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.incoming
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, data, nil
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("write on closed connection")
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.incoming)
	}
	return nil
}

func TestClient_TrySendQueues(t *testing.T) {
	client := NewClient(newFakeConn(), 2)

	if !client.TrySend([]byte("a")) {
		t.Fatal("expected send to succeed")
	}
	if got := <-client.Send; string(got) != "a" {
		t.Errorf("expected a, got %s", got)
	}
}

func TestClient_TrySendFullBuffer(t *testing.T) {
	client := NewClient(newFakeConn(), 1)

	if !client.TrySend([]byte("a")) {
		t.Fatal("expected first send to succeed")
	}
	if client.TrySend([]byte("b")) {
		t.Error("expected send to fail on full buffer")
	}
}

func TestClient_TrySendAfterClose(t *testing.T) {
	client := NewClient(newFakeConn(), 2)
	client.Close()

	if client.TrySend([]byte("a")) {
		t.Error("expected send to fail after close")
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := NewClient(newFakeConn(), 2)
	client.Close()
	client.Close() // must not panic
}

func TestClient_WritePumpDrainsQueue(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 4)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.TrySend([]byte("one"))
	client.TrySend([]byte("two"))
	client.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit after close")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.written) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(conn.written))
	}
	if string(conn.written[0]) != "one" || string(conn.written[1]) != "two" {
		t.Errorf("unexpected writes: %q %q", conn.written[0], conn.written[1])
	}
	if !conn.closed {
		t.Error("expected connection closed after pump drained")
	}
}

func TestClient_CloseWithoutPumpFlushesQueue(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 4)

	client.TrySend([]byte("one"))
	client.TrySend([]byte("two"))
	client.Close()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.written) != 2 {
		t.Fatalf("expected queued frames flushed on close, got %d writes", len(conn.written))
	}
	if !conn.closed {
		t.Error("expected connection closed")
	}
}

func TestClient_ReadPumpDispatches(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 4)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		client.ReadPump(func(data []byte) {
			mu.Lock()
			got = append(got, string(data))
			mu.Unlock()
		})
		close(done)
	}()

	conn.incoming <- []byte("hello")
	conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit after connection close")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("unexpected messages: %v", got)
	}
}
