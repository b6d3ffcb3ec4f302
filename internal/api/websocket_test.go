package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/ledtube-core/internal/engine"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

func newTestClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, "stream.stats")
	hub.Register(client)

	hub.Broadcast("stream.stats", map[string]any{"fps": 70})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != "stream.stats" {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, ChannelSpectrum)
	hub.Register(client)

	hub.Broadcast("show.changed", map[string]any{"show": "all_off"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(50 * time.Millisecond):
	}
	if hub.HasSubscribers("show.changed") {
		t.Error("HasSubscribers(show.changed) = true")
	}
	if !hub.HasSubscribers(ChannelSpectrum) {
		t.Error("HasSubscribers(spectrum) = false")
	}
}

func TestHub_ObserveEngineEvent(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub, string(engine.EventShowChanged))
	hub.Register(client)

	hub.Observe(engine.Event{
		Type:    engine.EventShowChanged,
		Payload: engine.Session{ID: "s1", Kind: lightshow.KindPingPong},
	})

	select {
	case msg := <-client.send:
		if !strings.Contains(string(msg), `"ping_pong"`) {
			t.Errorf("message = %s, want show name", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_ClientCountAndClose(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newTestClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	cancel()
	<-done
	if hub.ClientCount() != 0 {
		t.Errorf("after Run exits count = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}

	// Unregister after closeAll must not double-close.
	hub.Unregister(client)
}

func TestClient_SubscribeMessages(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	client := newTestClient(hub)

	client.handleMessage([]byte(`{"type":"subscribe","id":"1","payload":{"channels":["spectrum","stream.stats"]}}`))
	if !client.isSubscribed(ChannelSpectrum) || !client.isSubscribed("stream.stats") {
		t.Fatal("subscribe should add both channels")
	}
	<-client.send // response

	client.handleMessage([]byte(`{"type":"unsubscribe","id":"2","payload":{"channels":["spectrum"]}}`))
	if client.isSubscribed(ChannelSpectrum) {
		t.Error("unsubscribe should remove spectrum")
	}
	var resp WSMessage
	if err := json.Unmarshal(<-client.send, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "2" {
		t.Errorf("response = %+v", resp)
	}

	client.handleMessage([]byte(`{"type":"ping","id":"3"}`))
	if err := json.Unmarshal(<-client.send, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != WSTypePong {
		t.Errorf("ping reply type = %q, want pong", resp.Type)
	}

	client.handleMessage([]byte(`not json`))
	if err := json.Unmarshal(<-client.send, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != WSTypeError {
		t.Errorf("bad message reply type = %q, want error", resp.Type)
	}
}

func dialWS(t *testing.T, ts *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn, eventType string) WSMessage {
	t.Helper()
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == WSTypeEvent && msg.EventType == eventType {
			return msg
		}
	}
}

func TestWebSocket_SpectrumStream(t *testing.T) {
	srv, _, _ := testServer(t, withSpectrum(0.1, 0.9))
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.spectrumLoop(ctx)

	conn, _, err := dialWS(t, ts, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelSpectrum}},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readEvent(t, conn, ChannelSpectrum)
	bands, ok := msg.Payload.([]any)
	if !ok || len(bands) != 2 {
		t.Fatalf("payload = %#v, want two bands", msg.Payload)
	}
	if bands[1] != 0.9 {
		t.Errorf("band 1 = %v, want 0.9", bands[1])
	}
}

func TestWebSocket_RequiresTicketWhenAuthEnabled(t *testing.T) {
	srv, _, _ := testServer(t, withAuth())
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	_, resp, err := dialWS(t, ts, "")
	if err == nil {
		t.Fatal("dial without ticket should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v, want 401", resp)
	}
	resp.Body.Close()

	token := login(t, srv.buildRouter(), "operator", "s3cret")
	if token == nil {
		t.Fatal("login failed")
	}
	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/ws-ticket", "",
		"Authorization", "Bearer "+token.AccessToken)
	ticket, _ := decode[map[string]any](t, w)["ticket"].(string) //nolint:errcheck // checked below
	if ticket == "" {
		t.Fatalf("no ticket issued: %s", w.Body.String())
	}

	conn, _, err := dialWS(t, ts, "?ticket="+ticket)
	if err != nil {
		t.Fatalf("dial with ticket: %v", err)
	}
	conn.Close()

	if _, _, err := dialWS(t, ts, "?ticket="+ticket); err == nil {
		t.Error("a ticket must not be reusable")
	}
}
