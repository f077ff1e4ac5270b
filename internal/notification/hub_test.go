package notification

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/workorbit/workorbit/internal/domain"
)

// wsPair upgrades a real websocket connection against the hub and returns
// the client side plus the detach function Register handed back.
func wsPair(t *testing.T, hub *Hub, org string) (*websocket.Conn, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	detachCh := make(chan func(), 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		detachCh <- hub.Register(ws, org)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn, <-detachCh
}

func TestBroadcastReachesOrganization(t *testing.T) {
	hub := NewHub(nil)
	conn, _ := wsPair(t, hub, "org-1")
	_, _ = wsPair(t, hub, "org-2")

	hub.Broadcast(domain.Event{OrganizationID: "org-1"}, []byte(`{"type":"request_approved"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if string(msg) != `{"type":"request_approved"}` {
		t.Fatalf("unexpected payload %q", msg)
	}
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
}

func TestBroadcastAfterDetachDoesNotPanic(t *testing.T) {
	hub := NewHub(nil)
	_, detach := wsPair(t, hub, "org-1")

	detach()
	detach() // detaching twice is a no-op

	hub.Broadcast(domain.Event{OrganizationID: "org-1"}, []byte(`{}`))

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients after detach, got %d", got)
	}
}

// Detaches racing broadcasts must never land a send on a closed channel.
func TestConcurrentBroadcastAndDetach(t *testing.T) {
	hub := NewHub(nil)

	for i := 0; i < 50; i++ {
		_, detach := wsPair(t, hub, "org-1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				hub.Broadcast(domain.Event{OrganizationID: "org-1"}, []byte(`{}`))
			}
		}()
		go func() {
			defer wg.Done()
			detach()
		}()
		wg.Wait()
	}

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	c := &client{send: make(chan []byte, 1)}

	if !c.close() {
		t.Fatalf("first close should report true")
	}
	if c.close() {
		t.Fatalf("second close should report false")
	}
	if !c.enqueue([]byte(`{}`)) {
		t.Fatalf("enqueue after close should be a silent no-op, not a slow-consumer drop")
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	c := &client{send: make(chan []byte, 1)}

	if !c.enqueue([]byte(`{}`)) {
		t.Fatalf("first enqueue should fit the buffer")
	}
	if c.enqueue([]byte(`{}`)) {
		t.Fatalf("enqueue into a full buffer should report false")
	}
}
