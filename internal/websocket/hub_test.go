package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, hub.sendBuffer),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("reminder", "sent", 42, map[string]any{"company_id": float64(7)})
	hub.Broadcast(msg)

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "reminder_sent" {
				t.Errorf("expected type reminder_sent, got %s", got.Type)
			}
			if got.Entity != "reminder" {
				t.Errorf("expected entity reminder, got %s", got.Entity)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewMessage("company", "deleted", 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default(), WithSendBuffer(4))

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < 4; i++ {
		hub.Broadcast(NewMessage("company", "updated", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("company", "updated", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != 4 {
		t.Errorf("expected 4 messages, got %d", count)
	}

	hub.Unregister(c)
}

func TestHubOptions(t *testing.T) {
	hub := NewHub(slog.Default())
	if hub.sendBuffer != defaultSendBuffer {
		t.Errorf("sendBuffer = %d, want default %d", hub.sendBuffer, defaultSendBuffer)
	}
	if hub.keepalive != defaultKeepalive {
		t.Errorf("keepalive = %v, want default %v", hub.keepalive, defaultKeepalive)
	}

	hub = NewHub(slog.Default(), WithSendBuffer(64), WithKeepalive(5*time.Second))
	if hub.sendBuffer != 64 {
		t.Errorf("sendBuffer = %d, want 64", hub.sendBuffer)
	}
	if hub.keepalive != 5*time.Second {
		t.Errorf("keepalive = %v, want 5s", hub.keepalive)
	}

	c := NewClient(hub, nil)
	if cap(c.send) != 64 {
		t.Errorf("client buffer = %d, want hub's 64", cap(c.send))
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("company", "created", 5, nil)
	if msg.Type != "company_created" {
		t.Errorf("expected type company_created, got %s", msg.Type)
	}
	if msg.Entity != "company" {
		t.Errorf("expected entity company, got %s", msg.Entity)
	}
	if msg.Action != "created" {
		t.Errorf("expected action created, got %s", msg.Action)
	}
	if msg.ID != 5 {
		t.Errorf("expected id 5, got %d", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("reminder", "scheduled", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
