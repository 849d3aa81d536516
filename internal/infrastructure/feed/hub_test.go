package feed_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cardflow/internal/infrastructure/feed"
	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/gorilla/websocket"
)

func startServer(t *testing.T) (*feed.Hub, *httptest.Server) {
	t.Helper()
	hub := feed.NewHub(nil)
	srv := httptest.NewServer(feed.NewServer("", hub).Handler)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed" + query
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitClients(t *testing.T, hub *feed.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StreamsEvents(t *testing.T) {
	hub, srv := startServer(t)
	ws := dial(t, srv, "")
	waitClients(t, hub, 1)

	e := events.New(events.TypeItemTransitioned, -100, "@dev1", time.Now())
	e.ItemID = "#ТЗ-1"
	e.From, e.To = "confirmed", "work"
	if err := hub.Handle(context.Background(), e); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.ID != e.ID || got.To != "work" || got.ItemID != "#ТЗ-1" {
		t.Errorf("got %+v", got)
	}
}

func TestHub_ChatFilter(t *testing.T) {
	hub, srv := startServer(t)
	ws := dial(t, srv, "?chat=-100")
	waitClients(t, hub, 1)

	other := events.New(events.TypeProjectUpdated, -200, "@boss", time.Now())
	mine := events.New(events.TypeProjectUpdated, -100, "@boss", time.Now())
	_ = hub.Handle(context.Background(), other)
	_ = hub.Handle(context.Background(), mine)

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.ChatID != -100 {
		t.Errorf("received event for chat %d", got.ChatID)
	}
}

func TestHub_InvalidChatRejected(t *testing.T) {
	_, srv := startServer(t)
	resp, err := http.Get(srv.URL + "/feed?chat=abc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHub_ClientRemovedOnClose(t *testing.T) {
	hub, srv := startServer(t)
	ws := dial(t, srv, "")
	waitClients(t, hub, 1)

	_ = ws.Close()
	waitClients(t, hub, 0)
}

func TestHub_WorksAsDispatcherHandler(t *testing.T) {
	hub, srv := startServer(t)
	ws := dial(t, srv, "")
	waitClients(t, hub, 1)

	d := events.NewDispatcher()
	d.RegisterWildcard("feed", hub.Handle)
	if err := d.Publish(context.Background(), events.New(events.TypeItemCreated, -100, "@boss", time.Now())); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Type != events.TypeItemCreated {
		t.Errorf("type = %s", got.Type)
	}
}

func TestServer_Healthz(t *testing.T) {
	_, srv := startServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}
