package server

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestStreamHandler(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if hub.Viewers() != 1 {
		t.Errorf("Viewers() = %d, want 1", hub.Viewers())
	}

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	hub.publish([]byte(`{}`), jpeg)

	mr := multipart.NewReader(resp.Body, "frame")
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if part.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("part Content-Type = %q", part.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(io.LimitReader(part, int64(len(jpeg))))
	if err != nil {
		t.Fatalf("reading part: %v", err)
	}
	if string(body) != string(jpeg) {
		t.Errorf("part body = %x, want %x", body, jpeg)
	}
}

func TestStreamHandler_HubClosed(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	hub.Close()

	done := make(chan struct{})
	go func() {
		io.Copy(io.Discard, resp.Body)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream should end when the hub closes")
	}
}

func TestFacesHandler(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/faces"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	hub.publish([]byte(`{"frame":3}`), nil)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(msg) != `{"frame":3}` {
		t.Errorf("message = %s", msg)
	}

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	var health struct {
		Clients int `json:"clients"`
	}
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health.Clients != 1 {
		t.Errorf("health reports %d websocket clients, want 1", health.Clients)
	}

	hub.Close()

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected a going-away close, got %v", err)
	}
}
